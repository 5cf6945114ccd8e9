package token_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/jrsteele09/go-tokenkeeper/oauthclient"
	"github.com/jrsteele09/go-tokenkeeper/securestore"
	"github.com/jrsteele09/go-tokenkeeper/securestore/memory"
	"github.com/jrsteele09/go-tokenkeeper/token"
	"github.com/stretchr/testify/require"
)

type authServer struct {
	*httptest.Server
	tokenHits  atomic.Int32
	revokeHits atomic.Int32
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()
	s := &authServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenHits.Add(1)
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("refresh_token") != "rt-1" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-2",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "rt-2",
		})
	})

	mux.HandleFunc("/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		s.revokeHits.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *authServer) discovery() *oauthclient.Discovery {
	return &oauthclient.Discovery{
		Issuer:        s.URL,
		TokenURL:      s.URL + "/oauth2/token",
		RevocationURL: s.URL + "/oauth2/revoke",
	}
}

func newServerManager(t *testing.T, srv *authServer) (*token.Manager, *securestore.Codec) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(startTime)
	codec := securestore.NewCodec(memory.New())
	client := oauthclient.New(oauthclient.WithHTTPClient(srv.Client()), oauthclient.WithClock(clock))

	m := token.New(codec, client,
		token.WithClock(clock),
		token.WithRefreshBuffer(buffer),
		token.WithStorageKey(storageKey),
	)
	t.Cleanup(m.Close)
	m.Configure(testCfg, srv.discovery())
	m.SetCurrent(context.Background(), newCred("at-1", "rt-1", startTime.Unix(), secs(3600)))
	return m, codec
}

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestManager_RefreshWithCancelledContext(t *testing.T) {
	srv := newAuthServer(t)
	m, codec := newServerManager(t, srv)

	_, err := m.Refresh(cancelledContext())
	require.True(t, errors.Is(err, context.Canceled))
	require.False(t, errors.Is(err, errors.ErrRefresh))

	require.Equal(t, "at-1", m.Current().AccessToken)
	_, ok, err := codec.Load(context.Background(), storageKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(0), srv.tokenHits.Load())
	require.Equal(t, int32(0), srv.revokeHits.Load())

	deadline, scheduled := m.ScheduledDeadline()
	require.True(t, scheduled)
	require.Equal(t, startTime.Add(3600*time.Second-buffer), deadline)

	refreshed, err := m.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "at-2", refreshed.AccessToken)
	require.Equal(t, "rt-2", refreshed.RefreshToken)
	require.Equal(t, int32(1), srv.tokenHits.Load())
}

func TestManager_LogoutWithCancelledContext(t *testing.T) {
	srv := newAuthServer(t)
	m, codec := newServerManager(t, srv)

	m.SetCurrent(cancelledContext(), nil)

	require.Nil(t, m.Current())
	require.Equal(t, int32(1), srv.revokeHits.Load())
	_, ok, err := codec.Load(context.Background(), storageKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestManager_RefreshRejectedByServer(t *testing.T) {
	srv := newAuthServer(t)
	m, codec := newServerManager(t, srv)
	m.SetCurrent(context.Background(), newCred("at-9", "rt-expired", startTime.Unix(), secs(3600)))

	_, err := m.Refresh(context.Background())
	require.True(t, errors.Is(err, errors.ErrRefresh))
	code, ok := oauthclient.Code(err)
	require.True(t, ok)
	require.Equal(t, oauthclient.InvalidGrant, code)

	require.Nil(t, m.Current())
	require.Equal(t, int32(1), srv.revokeHits.Load())
	_, ok, err = codec.Load(context.Background(), storageKey)
	require.NoError(t, err)
	require.False(t, ok)
}
