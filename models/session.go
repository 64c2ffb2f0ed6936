package models

import "time"

// Role is the coarse identity category of a signed-in user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
	RoleValidator Role = "validator"
)

// Identity describes the signed-in user.
type Identity struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
	Permissions []string  `json:"permissions"`
	LastLogin   time.Time `json:"last_login"`
}

// Session is the persisted form of an authenticated session.
type Session struct {
	Credential    string    `json:"credential"`
	Identity      Identity  `json:"identity"`
	SessionExpiry time.Time `json:"session_expiry"`
	LastActivity  time.Time `json:"last_activity"`
}
