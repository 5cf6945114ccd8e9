// Package storetest checks that a securestore.Backend honours the Backend
// contract and carries chunked credentials end to end.
package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/jrsteele09/go-tokenkeeper/securestore"
	"github.com/stretchr/testify/require"
)

// Run exercises b. The backend must start empty.
func Run(t *testing.T, b securestore.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("get absent", func(t *testing.T) {
		_, err := b.Get(ctx, "missing")
		require.True(t, errors.Is(err, securestore.ErrNotFound))
	})

	t.Run("put get delete", func(t *testing.T) {
		require.NoError(t, b.Put(ctx, "k", "v1"))
		v, err := b.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v1", v)

		require.NoError(t, b.Put(ctx, "k", "v2"))
		v, err = b.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v2", v)

		require.NoError(t, b.Delete(ctx, "k"))
		_, err = b.Get(ctx, "k")
		require.True(t, errors.Is(err, securestore.ErrNotFound))
	})

	t.Run("delete absent", func(t *testing.T) {
		require.NoError(t, b.Delete(ctx, "never-written"))
	})

	t.Run("chunked round trip", func(t *testing.T) {
		codec := securestore.NewCodec(b)
		value := strings.Repeat("0123456789", 700)

		require.NoError(t, codec.Store(ctx, "oauth_token", value))
		count, err := b.Get(ctx, "oauth_token_number")
		require.NoError(t, err)
		require.Equal(t, "4", count)

		got, ok, err := codec.Load(ctx, "oauth_token")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, value, got)

		require.NoError(t, codec.Erase(ctx, "oauth_token"))
		_, ok, err = codec.Load(ctx, "oauth_token")
		require.NoError(t, err)
		require.False(t, ok)
	})
}
