package config

import (
	"strings"
	"time"
)

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetIssuerURL returns the authorization server issuer used for discovery
// (e.g., "https://auth.example.com"). Empty disables discovery.
func (OAuth) GetIssuerURL() string {
	return GetEnv("OAUTH_ISSUER_URL", "")
}

func (OAuth) GetClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "")
}

func (OAuth) GetClientSecret() string {
	return GetEnv("OAUTH_CLIENT_SECRET", "")
}

func (OAuth) GetScopes() []string {
	return strings.Fields(strings.ReplaceAll(GetEnv("OAUTH_SCOPES", "openid offline_access"), ",", " "))
}

// GetRevocationURL overrides the revocation endpoint advertised by discovery
func (OAuth) GetRevocationURL() string {
	return GetEnv("OAUTH_REVOCATION_URL", "")
}

func (OAuth) GetHTTPTimeout() time.Duration {
	return GetEnvDuration("OAUTH_HTTP_TIMEOUT", 30*time.Second)
}
