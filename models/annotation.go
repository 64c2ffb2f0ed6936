package models

import "time"

// Point is a position in the chart coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style holds the rendering attributes of an annotation.
type Style struct {
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"stroke_width"`
	Opacity     float64 `json:"opacity"` // 0..1
}

// Annotation is a user-drawn overlay shape.
type Annotation struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Points    []Point   `json:"points"`
	Text      string    `json:"text,omitempty"`
	Style     Style     `json:"style"`
	CreatedAt time.Time `json:"created_at"`
}
