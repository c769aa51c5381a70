package auth

import (
	"context"
	"errors"

	"github.com/spec-kit/securehire-auth/internal/domain"
	"github.com/spec-kit/securehire-auth/internal/repository"
)

var comparePassword = ComparePassword

// CredentialVerifier checks a login email and password against the principal stores.
type CredentialVerifier struct {
	principals *repository.Principals
	// dummyHash is compared against for unknown emails so both outcomes pay the bcrypt cost.
	dummyHash string
}

// NewCredentialVerifier constructs the verifier. cost should match the cost
// stored passwords are hashed with.
func NewCredentialVerifier(principals *repository.Principals, cost int) *CredentialVerifier {
	dummy, _ := HashPassword("securehire-unknown-principal", cost)
	return &CredentialVerifier{principals: principals, dummyHash: dummy}
}

// Authenticate returns the principal owning email when password matches.
// Unknown emails and wrong passwords are both domain.ErrInvalidCredentials.
func (v *CredentialVerifier) Authenticate(ctx context.Context, email, password string) (domain.Principal, error) {
	p, err := v.principals.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			_ = comparePassword(v.dummyHash, password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := comparePassword(p.Credentials().PasswordHash, password); err != nil {
		return nil, err
	}
	if p.Credentials().Blocked {
		return nil, domain.ErrAccountBlocked
	}
	return p, nil
}
