package oauthclient

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Used in: Token refresh flow (get new access token without re-authenticating user)
	// Token request includes: refresh_token, client_id, client_secret
	// Returns: new access_token, and optionally a rotated refresh_token
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenTypeHint tells the revocation endpoint which kind of token it is given
// (RFC 7009 section 2.1). Servers may ignore it and search all token types.
type TokenTypeHint string

const (
	// AccessTokenHint marks the token as an access token.
	// Used in: Logout, revoking the access token the client last held
	AccessTokenHint TokenTypeHint = "access_token"

	// RefreshTokenHint marks the token as a refresh token.
	// Revoking a refresh token usually invalidates the access tokens issued from it.
	RefreshTokenHint TokenTypeHint = "refresh_token"
)

// ErrorResponse is the error body of a token or revocation endpoint
// (RFC 6749 section 5.2).
type ErrorResponse struct {
	// Code is the error code.
	// Example: "invalid_grant"
	Code ErrorCode `json:"error"`

	// Description is human-readable text for the developer.
	// Example: "refresh token expired"
	Description string `json:"error_description,omitempty"`

	// URI points to a page with more information about the error.
	URI string `json:"error_uri,omitempty"`
}
