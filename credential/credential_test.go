package credential_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-tokenkeeper/credential"
	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func expiring(issuedAt, expiresIn int64) *credential.Credential {
	return &credential.Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		IssuedAt:     issuedAt,
		ExpiresIn:    &expiresIn,
	}
}

func TestCredential_DeadlineMath(t *testing.T) {
	c := expiring(1000, 3600)
	buffer := 300 * time.Second

	at, ok := c.RefreshAt(buffer)
	require.True(t, ok)
	require.Equal(t, int64(4300), at.Unix())

	t.Run("before deadline", func(t *testing.T) {
		d, ok := c.RefreshDelay(buffer, time.Unix(4290, 0))
		require.True(t, ok)
		require.Equal(t, 10*time.Second, d)
	})

	t.Run("past deadline is immediate", func(t *testing.T) {
		d, ok := c.RefreshDelay(buffer, time.Unix(4400, 0))
		require.True(t, ok)
		require.Equal(t, time.Duration(0), d)
	})

	t.Run("buffer larger than lifetime", func(t *testing.T) {
		short := expiring(1000, 60)
		d, ok := short.RefreshDelay(5*time.Minute, time.Unix(1000, 0))
		require.True(t, ok)
		require.Equal(t, time.Duration(0), d)
	})

	t.Run("no expiry", func(t *testing.T) {
		c := &credential.Credential{AccessToken: "a", IssuedAt: 1000}
		_, ok := c.RefreshAt(buffer)
		require.False(t, ok)
		_, ok = c.RefreshDelay(buffer, time.Unix(0, 0))
		require.False(t, ok)
	})

	t.Run("zero lifetime", func(t *testing.T) {
		c := expiring(1000, 0)
		require.False(t, c.Expires())
		_, ok := c.RefreshAt(buffer)
		require.False(t, ok)
		require.True(t, c.IsFresh(buffer, time.Unix(1<<40, 0)))
	})
}

func TestCredential_IsFresh(t *testing.T) {
	c := expiring(1000, 3600)
	buffer := 300 * time.Second

	require.True(t, c.IsFresh(buffer, time.Unix(4299, 0)))
	require.False(t, c.IsFresh(buffer, time.Unix(4300, 0)))
	require.False(t, c.IsFresh(buffer, time.Unix(9000, 0)))

	never := &credential.Credential{AccessToken: "a", IssuedAt: 1000}
	require.True(t, never.IsFresh(buffer, time.Unix(1<<40, 0)))

	var nilCred *credential.Credential
	require.False(t, nilCred.IsFresh(buffer, time.Unix(0, 0)))
}

func TestCredential_Clone(t *testing.T) {
	c := expiring(1000, 3600)
	cp := c.Clone()
	*cp.ExpiresIn = 1
	cp.AccessToken = "changed"

	require.Equal(t, int64(3600), *c.ExpiresIn)
	require.Equal(t, "access", c.AccessToken)

	var nilCred *credential.Credential
	require.Nil(t, nilCred.Clone())
}

func TestParse(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		c := expiring(1000, 3600)
		c.Scope = "openid"
		s, err := credential.Marshal(c)
		require.NoError(t, err)

		got, err := credential.Parse(s)
		require.NoError(t, err)
		require.Equal(t, c, got)
	})

	t.Run("camelCase layout", func(t *testing.T) {
		got, err := credential.Parse(`{"accessToken":"a","refreshToken":"r","tokenType":"bearer","issuedAt":1700000000,"expiresIn":3600,"scope":"openid profile"}`)
		require.NoError(t, err)
		require.Equal(t, "a", got.AccessToken)
		require.Equal(t, "r", got.RefreshToken)
		require.Equal(t, int64(1700000000), got.IssuedAt)
		require.Equal(t, int64(3600), *got.ExpiresIn)
	})

	t.Run("missing expiresIn", func(t *testing.T) {
		got, err := credential.Parse(`{"accessToken":"a","issuedAt":5}`)
		require.NoError(t, err)
		require.Nil(t, got.ExpiresIn)
		require.False(t, got.Expires())
	})

	for name, input := range map[string]string{
		"not json":          "{nope",
		"empty":             "",
		"null":              "null",
		"no access token":   `{"refreshToken":"r","issuedAt":1}`,
		"negative issuedAt": `{"accessToken":"a","issuedAt":-1}`,
		"negative expiry":   `{"accessToken":"a","issuedAt":1,"expiresIn":-5}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := credential.Parse(input)
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrDecode))
		})
	}
}

func TestFromOAuth2Token(t *testing.T) {
	now := time.Unix(10_000, 0)

	t.Run("expiry", func(t *testing.T) {
		tok := &oauth2.Token{
			AccessToken:  "a",
			RefreshToken: "r",
			TokenType:    "Bearer",
			Expiry:       now.Add(time.Hour),
		}
		c := credential.FromOAuth2Token(tok, now)
		require.Equal(t, int64(10_000), c.IssuedAt)
		require.Equal(t, int64(3600), *c.ExpiresIn)
		require.Equal(t, "r", c.RefreshToken)
	})

	t.Run("raw expires_in and extras", func(t *testing.T) {
		tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]interface{}{
			"expires_in": float64(120),
			"scope":      "openid email",
			"id_token":   "id",
		})
		c := credential.FromOAuth2Token(tok, now)
		require.Equal(t, int64(120), *c.ExpiresIn)
		require.Equal(t, "openid email", c.Scope)
		require.Equal(t, "id", c.IDToken)
	})

	t.Run("jwt claims", func(t *testing.T) {
		raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
			"sub": "user-1",
			"iat": int64(9_990),
			"exp": int64(9_990 + 900),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		c := credential.FromOAuth2Token(&oauth2.Token{AccessToken: raw}, now)
		require.Equal(t, int64(9_990), c.IssuedAt)
		require.Equal(t, int64(900), *c.ExpiresIn)
	})

	t.Run("jwt already expired at issue", func(t *testing.T) {
		raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
			"iat": int64(9_990),
			"exp": int64(9_900),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		c := credential.FromOAuth2Token(&oauth2.Token{AccessToken: raw}, now)
		require.Equal(t, int64(0), *c.ExpiresIn)
		require.False(t, c.Expires())
	})

	t.Run("opaque token without expiry never expires", func(t *testing.T) {
		c := credential.FromOAuth2Token(&oauth2.Token{AccessToken: "opaque"}, now)
		require.Nil(t, c.ExpiresIn)
	})

	t.Run("nil", func(t *testing.T) {
		require.Nil(t, credential.FromOAuth2Token(nil, now))
	})
}

func TestParseClaims(t *testing.T) {
	_, err := credential.ParseClaims("opaque-token")
	require.Error(t, err)

	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "user-1",
		"exp": int64(2000),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	claims, err := credential.ParseClaims(raw)
	require.NoError(t, err)
	require.Equal(t, int64(2000), *claims.Exp)
	require.Nil(t, claims.Iat)
	require.Equal(t, "user-1", *claims.Sub)
}
