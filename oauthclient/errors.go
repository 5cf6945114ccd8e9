package oauthclient

import (
	"fmt"

	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"golang.org/x/oauth2"
)

// ErrorCode is an OAuth 2.0 error code returned by the authorization server.
type ErrorCode string

const (
	InvalidRequest       ErrorCode = "invalid_request"
	InvalidClient        ErrorCode = "invalid_client"
	InvalidGrant         ErrorCode = "invalid_grant"
	UnauthorizedClient   ErrorCode = "unauthorized_client"
	UnsupportedGrantType ErrorCode = "unsupported_grant_type"
	InvalidScope         ErrorCode = "invalid_scope"
	UnsupportedTokenType ErrorCode = "unsupported_token_type"
	ServerError          ErrorCode = "server_error"
)

// ResponseError is a non-success response from the authorization server.
type ResponseError struct {
	StatusCode int
	ErrorResponse
}

func (e *ResponseError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("authorization server returned status %d", e.StatusCode)
	}
	if e.Description != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Description, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Code, e.StatusCode)
}

// Code extracts the OAuth error code from err, if the server sent one.
func Code(err error) (ErrorCode, bool) {
	var re *ResponseError
	if errors.As(err, &re) && re.Code != "" {
		return re.Code, true
	}
	var oe *oauth2.RetrieveError
	if errors.As(err, &oe) && oe.ErrorCode != "" {
		return ErrorCode(oe.ErrorCode), true
	}
	return "", false
}
