package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"dag-console/apperr"
	"dag-console/models"
)

// HTTPExchange calls the credential service over HTTP.
type HTTPExchange struct {
	client *resty.Client
}

// NewHTTPExchange creates a client for the service at baseURL.
// timeout bounds each request on top of any context deadline.
func NewHTTPExchange(baseURL string, timeout time.Duration) *HTTPExchange {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &HTTPExchange{client: c}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type grantResponse struct {
	Token  string `json:"token"`
	Role   string `json:"role"`
	UserID string `json:"user_id"`
}

func (g grantResponse) grant() Grant {
	return Grant{Token: g.Token, Role: models.Role(g.Role), UserID: g.UserID}
}

// Authenticate exchanges username and password for a token.
func (x *HTTPExchange) Authenticate(ctx context.Context, username, password string) (Grant, error) {
	var out grantResponse
	resp, err := x.client.R().
		SetContext(ctx).
		SetBody(loginRequest{Username: username, Password: password}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil {
		return Grant{}, transportError("login", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Grant{}, apperr.NewInvalidCredentials()
	case code < 200 || code > 299:
		return Grant{}, apperr.NewNetworkFailure(fmt.Sprintf("login: credential service status %d", code))
	}
	if out.Token == "" {
		return Grant{}, apperr.NewNetworkFailure("login: credential service returned no token")
	}
	return out.grant(), nil
}

// Revoke invalidates token on the server.
func (x *HTTPExchange) Revoke(ctx context.Context, token string) error {
	resp, err := x.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Post("/auth/logout")
	if err != nil {
		return transportError("logout", err)
	}
	if resp.IsError() {
		return apperr.NewNetworkFailure(fmt.Sprintf("logout: credential service status %d", resp.StatusCode()))
	}
	return nil
}

// Refresh trades a live token for a fresh one.
func (x *HTTPExchange) Refresh(ctx context.Context, token string) (Grant, error) {
	var out grantResponse
	resp, err := x.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Post("/auth/refresh")
	if err != nil {
		return Grant{}, transportError("refresh", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Grant{}, apperr.NewExpired()
	case code < 200 || code > 299:
		return Grant{}, apperr.NewNetworkFailure(fmt.Sprintf("refresh: credential service status %d", code))
	}
	if out.Token == "" {
		out.Token = token
	}
	return out.grant(), nil
}

func transportError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.NewTimeout(op).WithCause(err)
	}
	return apperr.NewNetworkFailure(op + " request failed").WithCause(err)
}
