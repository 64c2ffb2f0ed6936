package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"dag-console/annotation"
	"dag-console/apperr"
	"dag-console/models"
)

type addAnnotationRequest struct {
	Kind   annotation.Kind `json:"kind"`
	Points []models.Point  `json:"points"`
	Style  models.Style    `json:"style"`
	Text   string          `json:"text"`
}

func (h *Handler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"annotations": h.Annotations.List(),
	})
}

func (h *Handler) AddAnnotation(w http.ResponseWriter, r *http.Request) {
	var req addAnnotationRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.Annotations.Add(req.Kind, req.Points, req.Style, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var patch annotation.Patch
	if !decode(w, r, &patch) {
		return
	}
	a, err := h.Annotations.Update(mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	if err := h.Annotations.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearAnnotations(w http.ResponseWriter, r *http.Request) {
	h.Annotations.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

// HitTest returns the first annotation within tolerance of (x, y)
func (h *Handler) HitTest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, apperr.NewValidation("x and y must be numbers"))
		return
	}
	tol := h.HitTolerance
	if s := q.Get("tolerance"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			writeError(w, apperr.NewValidation("tolerance must be a non-negative number"))
			return
		}
		tol = v
	}

	a, ok := h.Annotations.HitTest(models.Point{X: x, Y: y}, tol)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"hit": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hit": true, "annotation": a})
}

// FibonacciLevels returns the horizontal retracement levels of one annotation
func (h *Handler) FibonacciLevels(w http.ResponseWriter, r *http.Request) {
	a, err := h.Annotations.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	levels, err := annotation.FibonacciLevels(a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"levels": levels})
}

func (h *Handler) ExportAnnotations(w http.ResponseWriter, r *http.Request) {
	data, err := h.Annotations.Serialize()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportAnnotations replaces the whole set with the posted document
func (h *Handler) ImportAnnotations(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.NewValidation("Invalid request payload"))
		return
	}
	if err := h.Annotations.Deserialize(data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Annotations imported",
		"count":   h.Annotations.Len(),
	})
}
