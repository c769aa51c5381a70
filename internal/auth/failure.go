package auth

import (
	"errors"

	"github.com/spec-kit/securehire-auth/internal/domain"
)

// Failure kinds as they appear in logs and metrics.
const (
	KindMalformed          = "malformed"
	KindSignatureInvalid   = "signature_invalid"
	KindExpired            = "expired"
	KindPrincipalNotFound  = "principal_not_found"
	KindRotationConflict   = "rotation_conflict"
	KindAccountBlocked     = "account_blocked"
	KindInvalidCredentials = "invalid_credentials"
	KindStoreError         = "store_error"
)

// FailureKind maps an error to its stable kind. Unknown errors are store errors.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedToken):
		return KindMalformed
	case errors.Is(err, domain.ErrSignatureInvalid):
		return KindSignatureInvalid
	case errors.Is(err, domain.ErrTokenExpired):
		return KindExpired
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return KindPrincipalNotFound
	case errors.Is(err, domain.ErrRotationConflict):
		return KindRotationConflict
	case errors.Is(err, domain.ErrAccountBlocked):
		return KindAccountBlocked
	case errors.Is(err, domain.ErrInvalidCredentials):
		return KindInvalidCredentials
	default:
		return KindStoreError
	}
}
