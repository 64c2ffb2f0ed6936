package auth

import (
	"context"

	"dag-console/models"
)

// Grant is what the credential service hands back on login or refresh.
type Grant struct {
	Token  string
	Role   models.Role
	UserID string
}

// Exchange is the remote credential service.
type Exchange interface {
	Authenticate(ctx context.Context, username, password string) (Grant, error)
	Revoke(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (Grant, error)
}
