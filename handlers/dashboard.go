package handlers

import (
	"net/http"

	"dag-console/apperr"
	"dag-console/dashboard"
	"dag-console/models"
)

// GetLayout returns the signed-in user's layout or their role default
func (h *Handler) GetLayout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Auth.Identity()
	if !ok {
		writeError(w, apperr.NewUnauthenticated())
		return
	}
	l, err := h.Dashboard.Get(id.UserID, id.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// SaveLayout stores the posted widgets for the signed-in user
func (h *Handler) SaveLayout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Auth.Identity()
	if !ok {
		writeError(w, apperr.NewUnauthenticated())
		return
	}
	var l models.Layout
	if !decode(w, r, &l) {
		return
	}
	l.UserID = id.UserID
	saved, err := h.Dashboard.Save(l)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) ResetLayout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Auth.Identity()
	if !ok {
		writeError(w, apperr.NewUnauthenticated())
		return
	}
	if err := h.Dashboard.Reset(id.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Default(id.UserID, id.Role))
}
