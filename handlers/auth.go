package handlers

import (
	"net/http"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST requests exchanging credentials for a session
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	identity, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Signed in",
		"identity": identity,
		"session":  h.Auth.Snapshot(),
	})
}

// Logout always succeeds; the local session is gone afterwards
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Auth.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Auth.Snapshot())
}

// Activity records a user interaction reported by the surface
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	h.Auth.Activity()
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the credential-free session picture
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Auth.Snapshot())
}
