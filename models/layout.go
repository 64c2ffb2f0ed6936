package models

import "time"

// Widget is one tile of a dashboard grid.
type Widget struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
}

// Layout is a user's dashboard arrangement.
type Layout struct {
	UserID    string    `json:"user_id"`
	Widgets   []Widget  `json:"widgets"`
	UpdatedAt time.Time `json:"updated_at"`
}
