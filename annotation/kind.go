package annotation

import (
	"math"

	"dag-console/models"
)

// Kind is the closed set of annotation shapes.
type Kind string

const (
	KindTrendLine  Kind = "trend-line"
	KindFibonacci  Kind = "fibonacci-retracement"
	KindSupport    Kind = "support-line"
	KindResistance Kind = "resistance-line"
	KindTextLabel  Kind = "text-label"
	KindRectangle  Kind = "rectangle"
	KindCircle     Kind = "circle"
	KindArrow      Kind = "arrow"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{
	KindTrendLine, KindFibonacci, KindSupport, KindResistance,
	KindTextLabel, KindRectangle, KindCircle, KindArrow,
}

// shape carries the per-kind rules. Implementations live in this file only.
type shape interface {
	pointCount() int
	needsText() bool
	hit(pts []models.Point, p models.Point, tol float64) bool
}

// shapeOf is the only place kinds are dispatched on.
func shapeOf(k Kind) (shape, bool) {
	switch k {
	case KindTrendLine, KindFibonacci, KindRectangle, KindCircle, KindArrow:
		return twoPoint{}, true
	case KindSupport, KindResistance:
		return horizontalGuide{}, true
	case KindTextLabel:
		return textLabel{}, true
	}
	return nil, false
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := shapeOf(k)
	return ok
}

// PointCount is the number of control points the kind stores, or 0 for unknown kinds.
func (k Kind) PointCount() int {
	s, ok := shapeOf(k)
	if !ok {
		return 0
	}
	return s.pointCount()
}

// twoPoint covers lines, retracements and shapes spanned by two control points.
// Hit-testing looks at the control points only, not the stroke between them.
type twoPoint struct{}

func (twoPoint) pointCount() int { return 2 }
func (twoPoint) needsText() bool { return false }
func (twoPoint) hit(pts []models.Point, p models.Point, tol float64) bool {
	return nearestVertex(pts, p) <= tol
}

// horizontalGuide is drawn across the full width at the anchor's Y, so the
// anchor's X plays no part in hit-testing.
type horizontalGuide struct{}

func (horizontalGuide) pointCount() int { return 1 }
func (horizontalGuide) needsText() bool { return false }
func (horizontalGuide) hit(pts []models.Point, p models.Point, tol float64) bool {
	if len(pts) == 0 {
		return false
	}
	return math.Abs(p.Y-pts[0].Y) <= tol
}

type textLabel struct{}

func (textLabel) pointCount() int { return 1 }
func (textLabel) needsText() bool { return true }
func (textLabel) hit(pts []models.Point, p models.Point, tol float64) bool {
	return nearestVertex(pts, p) <= tol
}

func nearestVertex(pts []models.Point, p models.Point) float64 {
	best := math.Inf(1)
	for _, v := range pts {
		if d := Distance(v, p); d < best {
			best = d
		}
	}
	return best
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b models.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
