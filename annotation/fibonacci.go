package annotation

import (
	"dag-console/apperr"
	"dag-console/models"
)

// FibonacciRatios is the fixed retracement ladder.
var FibonacciRatios = [...]float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1.0}

// Level is one rung of a retracement ladder.
type Level struct {
	Ratio float64 `json:"ratio"`
	Y     float64 `json:"y"`
}

// FibonacciLevels maps the ladder linearly from the first point's Y to the second's.
func FibonacciLevels(a models.Annotation) ([]Level, error) {
	if Kind(a.Kind) != KindFibonacci {
		return nil, apperr.NewValidation("not a fibonacci-retracement: " + a.Kind)
	}
	if len(a.Points) != 2 {
		return nil, apperr.NewInvalidPointCount(a.Kind, 2, len(a.Points))
	}
	from, to := a.Points[0].Y, a.Points[1].Y
	levels := make([]Level, len(FibonacciRatios))
	for i, r := range FibonacciRatios {
		levels[i] = Level{Ratio: r, Y: from + (to-from)*r}
	}
	return levels, nil
}
