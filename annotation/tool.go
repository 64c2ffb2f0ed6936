package annotation

import (
	"dag-console/apperr"
	"dag-console/models"
)

// ToolState is the state of the drawing tool.
type ToolState int

const (
	ToolIdle    ToolState = iota // no kind selected
	ToolArmed                    // kind selected, waiting for pointer-down
	ToolDrawing                  // pointer is down
)

func (s ToolState) String() string {
	switch s {
	case ToolIdle:
		return "idle"
	case ToolArmed:
		return "armed"
	case ToolDrawing:
		return "drawing"
	}
	return "unknown"
}

// Tool turns pointer sequences into annotations on an Engine.
// It is driven from a single event loop and is not safe for concurrent use.
type Tool struct {
	engine  *Engine
	minDrag float64

	state ToolState
	kind  Kind
	style models.Style
	text  string
	start models.Point
	cur   models.Point
}

// NewTool returns an idle tool. Two-point sketches shorter than minDrag are discarded.
func NewTool(engine *Engine, minDrag float64) *Tool {
	return &Tool{engine: engine, minDrag: minDrag}
}

func (t *Tool) State() ToolState { return t.state }

func (t *Tool) Kind() Kind { return t.kind }

// Select arms the tool for kind, abandoning any sketch in progress.
func (t *Tool) Select(kind Kind) error {
	if !kind.Valid() {
		return apperr.NewValidation("unknown annotation kind: " + string(kind))
	}
	t.kind = kind
	t.state = ToolArmed
	return nil
}

func (t *Tool) SetStyle(style models.Style) { t.style = style }

// SetText sets the content used by the next text-label.
func (t *Tool) SetText(text string) { t.text = text }

// Cancel drops the sketch and the selected kind.
func (t *Tool) Cancel() {
	t.state = ToolIdle
	t.kind = ""
}

func (t *Tool) PointerDown(p models.Point) {
	if t.state != ToolArmed {
		return
	}
	t.start, t.cur = p, p
	t.state = ToolDrawing
}

func (t *Tool) PointerMove(p models.Point) {
	if t.state == ToolDrawing {
		t.cur = p
	}
}

// PointerUp finishes the sketch. It reports whether an annotation was created.
// The tool stays armed with the same kind afterwards.
func (t *Tool) PointerUp(p models.Point) (models.Annotation, bool, error) {
	if t.state != ToolDrawing {
		return models.Annotation{}, false, nil
	}
	t.cur = p
	t.state = ToolArmed

	var points []models.Point
	switch t.kind.PointCount() {
	case 1:
		points = []models.Point{p}
	default:
		if Distance(t.start, p) < t.minDrag {
			return models.Annotation{}, false, nil
		}
		points = []models.Point{t.start, p}
	}

	text := ""
	if t.kind == KindTextLabel {
		text = t.text
	}
	a, err := t.engine.Add(t.kind, points, t.style, text)
	if err != nil {
		return models.Annotation{}, false, err
	}
	return a, true, nil
}

// Preview returns the points of the sketch in progress, for the surface to draw.
func (t *Tool) Preview() []models.Point {
	if t.state != ToolDrawing {
		return nil
	}
	if t.kind.PointCount() == 1 {
		return []models.Point{t.cur}
	}
	return []models.Point{t.start, t.cur}
}
