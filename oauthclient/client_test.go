package oauthclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/jrsteele09/go-tokenkeeper/oauthclient"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	*httptest.Server
	mu      sync.Mutex
	revoked []string
	hints   []string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                 fs.URL,
			"authorization_endpoint": fs.URL + "/oauth2/authorize",
			"token_endpoint":         fs.URL + "/oauth2/token",
			"revocation_endpoint":    fs.URL + "/oauth2/revoke",
			"jwks_uri":               fs.URL + "/.well-known/jwks.json",
		})
	})

	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("grant_type") != "refresh_token" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported_grant_type"})
			return
		}
		switch r.PostForm.Get("refresh_token") {
		case "rt-rotating":
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "at-2",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "rt-rotated",
				"scope":         "openid offline_access",
			})
		case "rt-static":
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "at-3",
				"token_type":   "Bearer",
				"expires_in":   600,
			})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":             "invalid_grant",
				"error_description": "refresh token expired",
			})
		}
	})

	mux.HandleFunc("/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("client_id") != "client-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_client"})
			return
		}
		fs.mu.Lock()
		fs.revoked = append(fs.revoked, r.PostForm.Get("token"))
		fs.hints = append(fs.hints, r.PostForm.Get("token_type_hint"))
		fs.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) discovery() *oauthclient.Discovery {
	return &oauthclient.Discovery{
		Issuer:        fs.URL,
		TokenURL:      fs.URL + "/oauth2/token",
		RevocationURL: fs.URL + "/oauth2/revoke",
	}
}

var testConfig = oauthclient.Config{ClientID: "client-1", ClientSecret: "secret", Scopes: []string{"openid"}}

func TestDiscover(t *testing.T) {
	srv := newFakeServer(t)

	d, err := oauthclient.Discover(context.Background(), srv.Client(), srv.URL, "")
	require.NoError(t, err)
	require.Equal(t, srv.URL, d.Issuer)
	require.Equal(t, srv.URL+"/oauth2/token", d.TokenURL)
	require.Equal(t, srv.URL+"/oauth2/authorize", d.AuthURL)
	require.Equal(t, srv.URL+"/oauth2/revoke", d.RevocationURL)

	t.Run("revocation override", func(t *testing.T) {
		d, err := oauthclient.Discover(context.Background(), srv.Client(), srv.URL, "https://revoke.example.com")
		require.NoError(t, err)
		require.Equal(t, "https://revoke.example.com", d.RevocationURL)
	})

	t.Run("unreachable issuer", func(t *testing.T) {
		_, err := oauthclient.Discover(context.Background(), srv.Client(), srv.URL+"/nope", "")
		require.True(t, errors.Is(err, errors.ErrDiscovery))
	})
}

func TestClient_Refresh(t *testing.T) {
	srv := newFakeServer(t)
	now := time.Unix(1_700_000_000, 0)
	client := oauthclient.New(
		oauthclient.WithHTTPClient(srv.Client()),
		oauthclient.WithClock(clockwork.NewFakeClockAt(now)),
	)

	t.Run("rotated refresh token", func(t *testing.T) {
		cred, err := client.Refresh(context.Background(), "rt-rotating", testConfig, srv.discovery())
		require.NoError(t, err)
		require.Equal(t, "at-2", cred.AccessToken)
		require.Equal(t, "rt-rotated", cred.RefreshToken)
		require.Equal(t, now.Unix(), cred.IssuedAt)
		require.Equal(t, int64(3600), *cred.ExpiresIn)
		require.Equal(t, "openid offline_access", cred.Scope)
	})

	t.Run("refresh token not rotated", func(t *testing.T) {
		cred, err := client.Refresh(context.Background(), "rt-static", testConfig, srv.discovery())
		require.NoError(t, err)
		require.Equal(t, "at-3", cred.AccessToken)
		require.Empty(t, cred.RefreshToken)
		require.Equal(t, int64(600), *cred.ExpiresIn)
	})

	t.Run("invalid grant", func(t *testing.T) {
		_, err := client.Refresh(context.Background(), "rt-expired", testConfig, srv.discovery())
		require.True(t, errors.Is(err, errors.ErrRefresh))

		code, ok := oauthclient.Code(err)
		require.True(t, ok)
		require.Equal(t, oauthclient.InvalidGrant, code)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := client.Refresh(context.Background(), "rt-rotating", testConfig, nil)
		require.True(t, errors.Is(err, errors.ErrConfigNotReady))
	})

	t.Run("no refresh token", func(t *testing.T) {
		_, err := client.Refresh(context.Background(), "", testConfig, srv.discovery())
		require.True(t, errors.Is(err, errors.ErrNoRefreshToken))
	})
}

func TestClient_Revoke(t *testing.T) {
	srv := newFakeServer(t)
	client := oauthclient.New(oauthclient.WithHTTPClient(srv.Client()))

	require.NoError(t, client.Revoke(context.Background(), "at-1", testConfig, srv.discovery()))

	srv.mu.Lock()
	require.Equal(t, []string{"at-1"}, srv.revoked)
	require.Equal(t, []string{"access_token"}, srv.hints)
	srv.mu.Unlock()

	t.Run("rejected", func(t *testing.T) {
		err := client.Revoke(context.Background(), "at-1", oauthclient.Config{ClientID: "other"}, srv.discovery())
		require.True(t, errors.Is(err, errors.ErrRevoke))

		var respErr *oauthclient.ResponseError
		require.True(t, errors.As(err, &respErr))
		require.Equal(t, http.StatusUnauthorized, respErr.StatusCode)

		code, ok := oauthclient.Code(err)
		require.True(t, ok)
		require.Equal(t, oauthclient.InvalidClient, code)
	})

	t.Run("no revocation endpoint", func(t *testing.T) {
		d := srv.discovery()
		d.RevocationURL = ""
		err := client.Revoke(context.Background(), "at-1", testConfig, d)
		require.True(t, errors.Is(err, errors.ErrUnsupported))
	})
}
