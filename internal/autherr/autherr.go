package autherr

import (
	"errors"
	"net/http"
)

// The rotation/authentication taxonomy. Callers branch with errors.Is; every
// kind maps to an unauthorized-class HTTP response so internals never leak.
var (
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrExpiredCredential  = errors.New("expired credential")
	ErrSessionInvalidated = errors.New("session invalidated")
	ErrTokenReuseDetected = errors.New("token reuse detected")
	ErrDeviceMismatch     = errors.New("device mismatch")
	ErrAuthRequired       = errors.New("authentication required")
)

func IsAuthError(err error) bool {
	for _, kind := range []error{
		ErrInvalidCredential,
		ErrExpiredCredential,
		ErrSessionInvalidated,
		ErrTokenReuseDetected,
		ErrDeviceMismatch,
		ErrAuthRequired,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// HTTPStatus keeps every taxonomy kind in the unauthorized class. Anything
// outside the taxonomy is a storage or signing failure.
func HTTPStatus(err error) int {
	if IsAuthError(err) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return "invalid credential"
	case errors.Is(err, ErrExpiredCredential):
		return "credential expired"
	case errors.Is(err, ErrSessionInvalidated):
		return "session invalidated"
	case errors.Is(err, ErrTokenReuseDetected):
		return "session revoked"
	case errors.Is(err, ErrDeviceMismatch):
		return "session revoked"
	case errors.Is(err, ErrAuthRequired):
		return "authentication required"
	default:
		return "internal error"
	}
}
