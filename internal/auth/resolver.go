package auth

import (
	"context"

	"github.com/spec-kit/securehire-auth/internal/domain"
	"github.com/spec-kit/securehire-auth/internal/repository"
)

// PrincipalView is the read-only shape handed to code that only needs the
// username, the stored hash and the single authority.
type PrincipalView struct {
	Username     string
	PasswordHash string
	Authority    domain.Role
}

// PrincipalResolver maps usernames to principals.
type PrincipalResolver struct {
	principals *repository.Principals
}

// NewPrincipalResolver constructs the resolver.
func NewPrincipalResolver(principals *repository.Principals) *PrincipalResolver {
	return &PrincipalResolver{principals: principals}
}

// Resolve looks the username up candidate first, then recruiter.
func (r *PrincipalResolver) Resolve(ctx context.Context, username string) (PrincipalView, error) {
	p, err := r.Load(ctx, username)
	if err != nil {
		return PrincipalView{}, err
	}
	return ViewOf(p), nil
}

// Load is Resolve returning the full principal.
func (r *PrincipalResolver) Load(ctx context.Context, username string) (domain.Principal, error) {
	return r.principals.FindByEmail(ctx, domain.NormalizeEmail(username))
}

// ResolveAs looks only in the store for role, so a token's role claim can
// never select the other variant.
func (r *PrincipalResolver) ResolveAs(ctx context.Context, username string, role domain.Role) (domain.Principal, error) {
	return r.principals.FindByEmailAs(ctx, domain.NormalizeEmail(username), role)
}

// ViewOf projects a principal.
func ViewOf(p domain.Principal) PrincipalView {
	acc := p.Credentials()
	return PrincipalView{
		Username:     acc.Email,
		PasswordHash: acc.PasswordHash,
		Authority:    p.Role(),
	}
}
