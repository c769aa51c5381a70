package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/securehire-auth/internal/domain"
)

// PrincipalStore is the lookup and refresh-slot surface of one principal variant.
type PrincipalStore interface {
	Role() domain.Role
	FindByEmail(ctx context.Context, email string) (domain.Principal, error)
	FindByRefreshToken(ctx context.Context, token string) (domain.Principal, error)
	// RotateRefreshToken swaps the slot from oldToken to newToken or fails with
	// domain.ErrRotationConflict.
	RotateRefreshToken(ctx context.Context, p domain.Principal, oldToken, newToken string) error
	SetRefreshToken(ctx context.Context, p domain.Principal, token *string) error
	Create(ctx context.Context, p domain.Principal) error
}

type candidateStore struct {
	repo CandidateRepository
}

// NewCandidateStore adapts a CandidateRepository to PrincipalStore.
func NewCandidateStore(repo CandidateRepository) PrincipalStore {
	return &candidateStore{repo: repo}
}

func (s *candidateStore) Role() domain.Role { return domain.RoleCandidate }

func (s *candidateStore) FindByEmail(ctx context.Context, email string) (domain.Principal, error) {
	c, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *candidateStore) FindByRefreshToken(ctx context.Context, token string) (domain.Principal, error) {
	c, err := s.repo.GetByRefreshToken(ctx, token)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *candidateStore) RotateRefreshToken(ctx context.Context, p domain.Principal, oldToken, newToken string) error {
	c, ok := p.(*domain.Candidate)
	if !ok {
		return fmt.Errorf("candidate store cannot rotate %s principal", p.Role())
	}
	return s.repo.SwapRefreshToken(ctx, c.ID, oldToken, newToken)
}

func (s *candidateStore) Create(ctx context.Context, p domain.Principal) error {
	c, ok := p.(*domain.Candidate)
	if !ok {
		return fmt.Errorf("candidate store cannot create %s principal", p.Role())
	}
	return s.repo.Create(ctx, c)
}

func (s *candidateStore) SetRefreshToken(ctx context.Context, p domain.Principal, token *string) error {
	c, ok := p.(*domain.Candidate)
	if !ok {
		return fmt.Errorf("candidate store cannot update %s principal", p.Role())
	}
	return notFound(s.repo.SetRefreshToken(ctx, c.ID, token))
}

type recruiterStore struct {
	repo RecruiterRepository
}

// NewRecruiterStore adapts a RecruiterRepository to PrincipalStore.
func NewRecruiterStore(repo RecruiterRepository) PrincipalStore {
	return &recruiterStore{repo: repo}
}

func (s *recruiterStore) Role() domain.Role { return domain.RoleRecruiter }

func (s *recruiterStore) FindByEmail(ctx context.Context, email string) (domain.Principal, error) {
	r, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *recruiterStore) FindByRefreshToken(ctx context.Context, token string) (domain.Principal, error) {
	r, err := s.repo.GetByRefreshToken(ctx, token)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *recruiterStore) RotateRefreshToken(ctx context.Context, p domain.Principal, oldToken, newToken string) error {
	r, ok := p.(*domain.Recruiter)
	if !ok {
		return fmt.Errorf("recruiter store cannot rotate %s principal", p.Role())
	}
	return s.repo.SwapRefreshToken(ctx, r.ID, oldToken, newToken)
}

func (s *recruiterStore) Create(ctx context.Context, p domain.Principal) error {
	r, ok := p.(*domain.Recruiter)
	if !ok {
		return fmt.Errorf("recruiter store cannot create %s principal", p.Role())
	}
	return s.repo.Create(ctx, r)
}

func (s *recruiterStore) SetRefreshToken(ctx context.Context, p domain.Principal, token *string) error {
	r, ok := p.(*domain.Recruiter)
	if !ok {
		return fmt.Errorf("recruiter store cannot update %s principal", p.Role())
	}
	return notFound(s.repo.SetRefreshToken(ctx, r.ID, token))
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrPrincipalNotFound
	}
	return err
}

// Principals is the directory over both variant stores.
//
// Lookups that are not bound to a role consult the candidate store first and the
// recruiter store second; if an email exists in both, the candidate wins.
type Principals struct {
	order  []PrincipalStore
	byRole map[domain.Role]PrincipalStore
}

// NewPrincipals builds the directory with candidate-before-recruiter precedence.
func NewPrincipals(candidates CandidateRepository, recruiters RecruiterRepository) *Principals {
	return NewPrincipalsFromStores(NewCandidateStore(candidates), NewRecruiterStore(recruiters))
}

// NewPrincipalsFromStores builds the directory; stores are consulted in argument order.
func NewPrincipalsFromStores(stores ...PrincipalStore) *Principals {
	p := &Principals{byRole: make(map[domain.Role]PrincipalStore, len(stores))}
	for _, s := range stores {
		p.order = append(p.order, s)
		p.byRole[s.Role()] = s
	}
	return p
}

// FindByEmail returns the first principal with the email in precedence order.
func (p *Principals) FindByEmail(ctx context.Context, email string) (domain.Principal, error) {
	for _, s := range p.order {
		principal, err := s.FindByEmail(ctx, email)
		if err == nil {
			return principal, nil
		}
		if !errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrPrincipalNotFound
}

// FindByEmailAs looks only in the store for role.
func (p *Principals) FindByEmailAs(ctx context.Context, email string, role domain.Role) (domain.Principal, error) {
	s, ok := p.byRole[role]
	if !ok {
		return nil, domain.ErrPrincipalNotFound
	}
	return s.FindByEmail(ctx, email)
}

// FindByRefreshToken searches the slot values in precedence order.
func (p *Principals) FindByRefreshToken(ctx context.Context, token string) (domain.Principal, error) {
	for _, s := range p.order {
		principal, err := s.FindByRefreshToken(ctx, token)
		if err == nil {
			return principal, nil
		}
		if !errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrPrincipalNotFound
}

// RotateRefreshToken fails with domain.ErrRotationConflict unless oldToken is
// still the slot value, both in the loaded principal and at write time.
func (p *Principals) RotateRefreshToken(ctx context.Context, principal domain.Principal, oldToken, newToken string) error {
	if !SlotHolds(principal, oldToken) {
		return domain.ErrRotationConflict
	}
	s, err := p.storeFor(principal)
	if err != nil {
		return err
	}
	if err := s.RotateRefreshToken(ctx, principal, oldToken, newToken); err != nil {
		return err
	}
	principal.Credentials().RefreshToken = &newToken
	return nil
}

// SetRefreshToken overwrites the slot unconditionally, as login does.
func (p *Principals) SetRefreshToken(ctx context.Context, principal domain.Principal, token string) error {
	s, err := p.storeFor(principal)
	if err != nil {
		return err
	}
	if err := s.SetRefreshToken(ctx, principal, &token); err != nil {
		return err
	}
	principal.Credentials().RefreshToken = &token
	return nil
}

// ClearRefreshToken empties the slot.
func (p *Principals) ClearRefreshToken(ctx context.Context, principal domain.Principal) error {
	s, err := p.storeFor(principal)
	if err != nil {
		return err
	}
	if err := s.SetRefreshToken(ctx, principal, nil); err != nil {
		return err
	}
	principal.Credentials().RefreshToken = nil
	return nil
}

// EmailTaken reports whether any store already holds the email.
func (p *Principals) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := p.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Register stores a new principal in its variant store. The email must be
// unused in every store, not only the target one.
func (p *Principals) Register(ctx context.Context, principal domain.Principal) error {
	s, err := p.storeFor(principal)
	if err != nil {
		return err
	}
	taken, err := p.EmailTaken(ctx, principal.Credentials().Email)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrEmailTaken
	}
	return s.Create(ctx, principal)
}

func (p *Principals) storeFor(principal domain.Principal) (PrincipalStore, error) {
	if principal == nil {
		return nil, errors.New("nil principal")
	}
	s, ok := p.byRole[principal.Role()]
	if !ok {
		return nil, fmt.Errorf("no store for role %s", principal.Role())
	}
	return s, nil
}

// SlotHolds compares the principal's refresh slot with token in constant time.
func SlotHolds(principal domain.Principal, token string) bool {
	if principal == nil || token == "" {
		return false
	}
	slot := principal.Credentials().RefreshToken
	if slot == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*slot), []byte(token)) == 1
}
