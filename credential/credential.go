// Package credential defines the OAuth credential held by the token lifecycle
// manager and the arithmetic used to decide when it must be refreshed.
package credential

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
)

// Credential is an access/refresh token pair plus issuance metadata.
// A nil *Credential means logged out.
//
// The JSON layout is camelCase so records written by mobile clients of the same
// authorization server decode unchanged.
type Credential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	IssuedAt     int64  `json:"issuedAt"`            // Seconds since epoch
	ExpiresIn    *int64 `json:"expiresIn,omitempty"` // Seconds; nil or 0 never expires
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"idToken,omitempty"`
}

// Clone returns a deep copy so callers can't mutate manager state.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	if c.ExpiresIn != nil {
		v := *c.ExpiresIn
		cp.ExpiresIn = &v
	}
	return &cp
}

// Expires reports whether the credential carries an expiry and so needs
// scheduled refreshes. A zero lifetime counts as no expiry.
func (c *Credential) Expires() bool {
	return c != nil && c.ExpiresIn != nil && *c.ExpiresIn > 0
}

// RefreshAt is issuedAt + expiresIn - buffer. ok is false when the credential
// never expires.
func (c *Credential) RefreshAt(buffer time.Duration) (at time.Time, ok bool) {
	if !c.Expires() {
		return time.Time{}, false
	}
	return time.Unix(c.IssuedAt+*c.ExpiresIn, 0).Add(-buffer), true
}

// RefreshDelay is how long to wait before refreshing, clamped at zero.
func (c *Credential) RefreshDelay(buffer time.Duration, now time.Time) (time.Duration, bool) {
	at, ok := c.RefreshAt(buffer)
	if !ok {
		return 0, false
	}
	d := at.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// IsFresh reports whether now is still before the refresh deadline. Credentials
// without expiry are always fresh.
func (c *Credential) IsFresh(buffer time.Duration, now time.Time) bool {
	if c == nil {
		return false
	}
	at, ok := c.RefreshAt(buffer)
	if !ok {
		return true
	}
	return now.Before(at)
}

// HasRefreshToken returns true if a refresh token is available
func (c *Credential) HasRefreshToken() bool {
	return c != nil && c.RefreshToken != ""
}

// Validate checks the invariants a persisted credential must satisfy.
func (c *Credential) Validate() error {
	switch {
	case c == nil:
		return errors.ErrNoCredential
	case strings.TrimSpace(c.AccessToken) == "":
		return errors.Wrapf(errors.ErrInvalidCredential, "missing access token")
	case c.IssuedAt < 0:
		return errors.Wrapf(errors.ErrInvalidCredential, "negative issuedAt %d", c.IssuedAt)
	case c.ExpiresIn != nil && *c.ExpiresIn < 0:
		return errors.Wrapf(errors.ErrInvalidCredential, "negative expiresIn %d", *c.ExpiresIn)
	}
	return nil
}

// Marshal serialises the credential for storage.
func Marshal(c *Credential) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", errors.Wrapf(err, "marshal credential")
	}
	return string(b), nil
}

// Parse decodes a stored credential. Any failure is reported as ErrDecode.
func Parse(data string) (*Credential, error) {
	var c Credential
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse credential"), errors.ErrDecode)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Mark(err, errors.ErrDecode)
	}
	return &c, nil
}

// Seconds converts d to the whole-second representation used by ExpiresIn.
func Seconds(d time.Duration) *int64 {
	s := int64(d / time.Second)
	return &s
}
