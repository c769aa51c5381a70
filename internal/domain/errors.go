package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSignatureInvalid covers tampered tokens and tokens signed with the other key.
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrMalformedToken is a garbled token or one missing required claims.
	ErrMalformedToken = fmt.Errorf("malformed token: %w", ErrSignatureInvalid)

	// ErrTokenExpired means the signature is valid but exp has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrPrincipalNotFound means the subject resolves to no record in either store.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrRotationConflict means the presented refresh token is no longer the one on record.
	ErrRotationConflict = errors.New("refresh token rotation conflict")

	// ErrInvalidCredentials is a login email/password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountBlocked is returned for principals flagged as blocked.
	ErrAccountBlocked = errors.New("account blocked")

	// ErrEmailTaken is returned by registration when either store already has the email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrPasswordTooLong is a password over bcrypt's 72-byte input limit.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

	// ErrTooManyAttempts is returned when failed logins for an email exceed the window limit.
	ErrTooManyAttempts = errors.New("too many failed login attempts")
)
