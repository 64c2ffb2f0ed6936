package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"dag-console/annotation"
	"dag-console/apperr"
	"dag-console/auth"
	"dag-console/dag"
	"dag-console/dashboard"
	"dag-console/logger"
)

// Handler contains the HTTP handlers the rendering surface calls
type Handler struct {
	Auth         *auth.Manager
	DAG          *dag.Model
	Annotations  *annotation.Engine
	Dashboard    *dashboard.Service
	HitTolerance float64

	toolMu sync.Mutex
	tool   *annotation.Tool
}

// NewHandler creates and returns a new Handler instance
func NewHandler(a *auth.Manager, d *dag.Model, ann *annotation.Engine, dash *dashboard.Service, hitTolerance, minDrag float64) *Handler {
	return &Handler{
		Auth:         a,
		DAG:          d,
		Annotations:  ann,
		Dashboard:    dash,
		HitTolerance: hitTolerance,
		tool:         annotation.NewTool(ann, minDrag),
	}
}

// RequirePermission rejects the request unless the session holds perm
func (h *Handler) RequirePermission(perm string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Auth.Require(perm); err != nil {
			writeError(w, err)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	if e.Status >= http.StatusInternalServerError {
		logger.Logger.Error("Request failed", zap.Error(err))
	}
	body := map[string]interface{}{
		"error":   e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	writeJSON(w, e.Status, body)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Logger.Error("Failed to decode request", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, apperr.NewValidation("Invalid request payload"))
		return false
	}
	return true
}
