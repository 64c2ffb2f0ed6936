package handlers

import (
	"net/http"

	"dag-console/annotation"
	"dag-console/apperr"
	"dag-console/models"
)

type toolRequest struct {
	Kind  annotation.Kind `json:"kind"`
	Style models.Style    `json:"style"`
	Text  string          `json:"text"`
}

type pointerRequest struct {
	Event string  `json:"event"` // down, move or up
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type toolResponse struct {
	State      string             `json:"state"`
	Kind       annotation.Kind    `json:"kind,omitempty"`
	Preview    []models.Point     `json:"preview,omitempty"`
	Annotation *models.Annotation `json:"annotation,omitempty"`
}

func (h *Handler) toolStateLocked() toolResponse {
	return toolResponse{State: h.tool.State().String(), Kind: h.tool.Kind(), Preview: h.tool.Preview()}
}

// SelectTool arms the drawing tool for one annotation kind
func (h *Handler) SelectTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if !decode(w, r, &req) {
		return
	}
	h.toolMu.Lock()
	defer h.toolMu.Unlock()

	if err := h.tool.Select(req.Kind); err != nil {
		writeError(w, err)
		return
	}
	h.tool.SetStyle(req.Style)
	h.tool.SetText(req.Text)
	writeJSON(w, http.StatusOK, h.toolStateLocked())
}

func (h *Handler) CancelTool(w http.ResponseWriter, r *http.Request) {
	h.toolMu.Lock()
	defer h.toolMu.Unlock()
	h.tool.Cancel()
	writeJSON(w, http.StatusOK, h.toolStateLocked())
}

// Pointer feeds one pointer event to the drawing tool
func (h *Handler) Pointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !decode(w, r, &req) {
		return
	}
	p := models.Point{X: req.X, Y: req.Y}

	h.toolMu.Lock()
	defer h.toolMu.Unlock()

	switch req.Event {
	case "down":
		h.tool.PointerDown(p)
	case "move":
		h.tool.PointerMove(p)
	case "up":
		a, ok, err := h.tool.PointerUp(p)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := h.toolStateLocked()
		if ok {
			resp.Annotation = &a
			writeJSON(w, http.StatusCreated, resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	default:
		writeError(w, apperr.NewValidation("event must be down, move or up"))
		return
	}
	writeJSON(w, http.StatusOK, h.toolStateLocked())
}
