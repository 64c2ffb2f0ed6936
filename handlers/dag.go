package handlers

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"dag-console/auth"
	"dag-console/dag"
	"dag-console/logger"
)

var exportContentTypes = map[dag.Format]string{
	dag.FormatJSON:  "application/json",
	dag.FormatCSV:   "text/csv",
	dag.FormatImage: "image/png",
}

// GetView returns the nodes and edges that pass the active filters and search
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.DAG.View())
}

// GetFilters returns the active filter set and search term
func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	f, term := h.DAG.ActiveFilters()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filters":    f,
		"term":       term,
		"tx_buckets": dag.DefaultTxBuckets,
	})
}

func (h *Handler) ApplyFilters(w http.ResponseWriter, r *http.Request) {
	var f dag.Filters
	if !decode(w, r, &f) {
		return
	}
	writeJSON(w, http.StatusOK, h.DAG.ApplyFilters(f))
}

func (h *Handler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.DAG.ClearFilters())
}

type searchRequest struct {
	Term string `json:"term"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.DAG.Search(req.Term))
}

// Export renders the current view. CSV is a report and needs export_reports.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format := dag.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = dag.FormatJSON
	}
	if format == dag.FormatCSV {
		if err := h.Auth.Require(auth.PermExportReports); err != nil {
			writeError(w, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := h.DAG.Export(format, &buf); err != nil {
		writeError(w, err)
		return
	}
	logger.Logger.Info("Exported DAG view", zap.String("format", string(format)), zap.Int("bytes", buf.Len()))

	w.Header().Set("Content-Type", exportContentTypes[format])
	w.Header().Set("Content-Disposition", "attachment; filename=dag-view."+exportExtension(format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func exportExtension(f dag.Format) string {
	if f == dag.FormatImage {
		return "png"
	}
	return string(f)
}

func (h *Handler) GetTips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tips": h.DAG.Tips(),
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.DAG.Stats())
}

// GetNode returns one node together with its cumulative weight
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	node, err := h.DAG.NodeByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"node":              node,
		"cumulative_weight": h.DAG.CumulativeWeights()[id],
	})
}

// GetWeights returns the cumulative weight of every node, used to size them
func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.DAG.CumulativeWeights())
}
