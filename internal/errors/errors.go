package errors

import (
	"errors"
	"fmt"
)

// Common error types for the token lifecycle
var (
	// Storage errors
	ErrStorage  = errors.New("storage failure")
	ErrNotFound = errors.New("not found")
	ErrDecode   = errors.New("malformed persisted value")

	// Credential errors
	ErrNoCredential      = errors.New("no credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNoRefreshToken    = errors.New("credential has no refresh token")

	// Authorization server errors
	ErrRefresh        = errors.New("token refresh failed")
	ErrRevoke         = errors.New("token revocation failed")
	ErrDiscovery      = errors.New("discovery failed")
	ErrConfigNotReady = errors.New("oauth configuration not ready")

	// General errors
	ErrClosed      = errors.New("closed")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Mark attaches a sentinel to err so that Is(result, sentinel) holds while the
// original error stays in the chain.
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single import
func New(text string) error {
	return errors.New(text)
}
