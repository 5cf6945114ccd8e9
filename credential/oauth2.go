package credential

import (
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// FromOAuth2Token converts a token endpoint response into a Credential issued
// at now. The lifetime is taken, in order of preference, from the raw
// expires_in field, tok.Expiry, or the exp claim of a JWT access token.
func FromOAuth2Token(tok *oauth2.Token, now time.Time) *Credential {
	if tok == nil {
		return nil
	}

	c := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		IssuedAt:     now.Unix(),
		Scope:        extraString(tok, "scope"),
		IDToken:      extraString(tok, "id_token"),
	}

	// tok.Expiry is computed from the wall clock, so the raw value is preferred.
	if v, ok := extraInt(tok, "expires_in"); ok && v > 0 {
		c.ExpiresIn = &v
	} else if tok.ExpiresIn > 0 {
		c.ExpiresIn = &tok.ExpiresIn
	} else if !tok.Expiry.IsZero() {
		c.ExpiresIn = Seconds(tok.Expiry.Sub(now).Round(time.Second))
	} else if claims, err := ParseClaims(tok.AccessToken); err == nil && claims.Exp != nil {
		// Without a response expiry, trust the token's own lifetime.
		if claims.Iat != nil {
			c.IssuedAt = *claims.Iat
		}
		v := *claims.Exp - c.IssuedAt
		c.ExpiresIn = &v
	}
	if c.ExpiresIn != nil && *c.ExpiresIn < 0 {
		zero := int64(0)
		c.ExpiresIn = &zero
	}
	return c
}

func extraString(tok *oauth2.Token, key string) string {
	if s, ok := tok.Extra(key).(string); ok {
		return s
	}
	return ""
}

func extraInt(tok *oauth2.Token, key string) (int64, bool) {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		return i, err == nil
	}
	return 0, false
}
