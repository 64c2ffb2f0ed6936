package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dag-console/apperr"
	"dag-console/models"
)

func credentialServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case req.Username == "broken":
			w.WriteHeader(http.StatusInternalServerError)
		case req.Username == "slow":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		case req.Username == "empty":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"role":"user"}`))
		case req.Password != "pw":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(grantResponse{Token: "tok-" + req.Username, Role: "validator", UserID: "u-" + req.Username})
		}
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-vic" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer tok-vic":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"token":"tok-vic-2","role":"validator","user_id":"u-vic"}`))
		case "Bearer tok-quiet":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"role":"validator"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPExchange_Authenticate(t *testing.T) {
	srv := credentialServer(t)
	x := NewHTTPExchange(srv.URL, time.Second)

	g, err := x.Authenticate(context.Background(), "vic", "pw")
	require.NoError(t, err)
	assert.Equal(t, Grant{Token: "tok-vic", Role: models.RoleValidator, UserID: "u-vic"}, g)

	_, err = x.Authenticate(context.Background(), "vic", "nope")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidCredentials), "got %v", err)

	_, err = x.Authenticate(context.Background(), "broken", "pw")
	assert.True(t, apperr.Is(err, apperr.CodeNetworkFailure), "got %v", err)

	_, err = x.Authenticate(context.Background(), "empty", "pw")
	assert.True(t, apperr.Is(err, apperr.CodeNetworkFailure), "got %v", err)
}

func TestHTTPExchange_Timeout(t *testing.T) {
	srv := credentialServer(t)
	x := NewHTTPExchange(srv.URL, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := x.Authenticate(ctx, "slow", "pw")
	assert.True(t, apperr.Is(err, apperr.CodeTimeout), "got %v", err)
}

func TestHTTPExchange_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPExchange(url, time.Second).Authenticate(context.Background(), "vic", "pw")
	assert.True(t, apperr.Is(err, apperr.CodeNetworkFailure), "got %v", err)
}

func TestHTTPExchange_Revoke(t *testing.T) {
	srv := credentialServer(t)
	x := NewHTTPExchange(srv.URL, time.Second)

	assert.NoError(t, x.Revoke(context.Background(), "tok-vic"))
	assert.True(t, apperr.Is(x.Revoke(context.Background(), "tok-other"), apperr.CodeNetworkFailure))
}

func TestHTTPExchange_Refresh(t *testing.T) {
	srv := credentialServer(t)
	x := NewHTTPExchange(srv.URL, time.Second)

	g, err := x.Refresh(context.Background(), "tok-vic")
	require.NoError(t, err)
	assert.Equal(t, "tok-vic-2", g.Token)

	g, err = x.Refresh(context.Background(), "tok-quiet")
	require.NoError(t, err)
	assert.Equal(t, "tok-quiet", g.Token, "token is kept when the service does not rotate it")

	_, err = x.Refresh(context.Background(), "tok-dead")
	assert.True(t, apperr.Is(err, apperr.CodeExpired), "got %v", err)
}
