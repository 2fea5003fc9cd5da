package errors

import (
	"errors"
	"fmt"
)

// Owner token lifecycle errors
var (
	// ErrAuthExchangeFailed means the provider rejected an authorization code.
	ErrAuthExchangeFailed = errors.New("authorization code exchange failed")
	// ErrRefreshRejected means the refresh token is invalid or revoked; the owner must re-authenticate.
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrNotAuthenticated means no usable owner token exists anywhere.
	ErrNotAuthenticated = errors.New("owner not authenticated")
	// ErrProviderUnavailable covers timeouts, transport failures and provider 5xx responses.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrDurabilityDegraded is a warning state: memory is authoritative, nothing is persisted.
	ErrDurabilityDegraded = errors.New("durability degraded")
)

// Storage errors
var (
	ErrNotFound      = errors.New("not found")
	ErrNotConfigured = errors.New("not configured")
)

// Request errors
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidState   = errors.New("invalid state")
	ErrUnauthorized   = errors.New("unauthorized")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors, see errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}
