package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/securehire-auth/internal/domain"
)

// memoryTable keeps principals of one variant behind a mutex. Lookups return
// copies and misses return pgx.ErrNoRows, matching the Postgres repositories.
type memoryTable[P domain.Principal] struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]P
	clone  func(P) P
}

func newMemoryTable[P domain.Principal](clone func(P) P) *memoryTable[P] {
	return &memoryTable[P]{rows: make(map[int64]P), clone: clone}
}

func (t *memoryTable[P]) create(p P) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	acc := p.Credentials()
	for _, row := range t.rows {
		if row.Credentials().Email == acc.Email {
			return fmt.Errorf("%w: %q", domain.ErrEmailTaken, acc.Email)
		}
	}
	t.nextID++
	now := time.Now().UTC()
	acc.ID = t.nextID
	acc.CreatedAt = now
	acc.UpdatedAt = now
	t.rows[acc.ID] = t.clone(p)
	return nil
}

func (t *memoryTable[P]) find(match func(*domain.Account) bool) (P, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, row := range t.rows {
		if match(row.Credentials()) {
			return t.clone(row), nil
		}
	}
	var zero P
	return zero, pgx.ErrNoRows
}

func (t *memoryTable[P]) setRefreshToken(id int64, token *string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	acc := row.Credentials()
	acc.RefreshToken = copyToken(token)
	acc.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memoryTable[P]) swapRefreshToken(id int64, oldToken, newToken string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok {
		return domain.ErrRotationConflict
	}
	acc := row.Credentials()
	if acc.RefreshToken == nil || *acc.RefreshToken != oldToken {
		return domain.ErrRotationConflict
	}
	acc.RefreshToken = &newToken
	acc.UpdatedAt = time.Now().UTC()
	return nil
}

func copyToken(token *string) *string {
	if token == nil {
		return nil
	}
	v := *token
	return &v
}

// MemoryCandidateRepository is an in-process CandidateRepository.
type MemoryCandidateRepository struct {
	table *memoryTable[*domain.Candidate]
}

// NewMemoryCandidateRepository returns an empty in-memory repository.
func NewMemoryCandidateRepository() *MemoryCandidateRepository {
	return &MemoryCandidateRepository{table: newMemoryTable(func(c *domain.Candidate) *domain.Candidate {
		cp := *c
		cp.RefreshToken = copyToken(c.RefreshToken)
		return &cp
	})}
}

func (r *MemoryCandidateRepository) Create(_ context.Context, candidate *domain.Candidate) error {
	return r.table.create(candidate)
}

func (r *MemoryCandidateRepository) GetByEmail(_ context.Context, email string) (*domain.Candidate, error) {
	return r.table.find(func(a *domain.Account) bool { return a.Email == email })
}

func (r *MemoryCandidateRepository) GetByRefreshToken(_ context.Context, token string) (*domain.Candidate, error) {
	return r.table.find(func(a *domain.Account) bool { return a.RefreshToken != nil && *a.RefreshToken == token })
}

func (r *MemoryCandidateRepository) SetRefreshToken(_ context.Context, id int64, token *string) error {
	return r.table.setRefreshToken(id, token)
}

func (r *MemoryCandidateRepository) SwapRefreshToken(_ context.Context, id int64, oldToken, newToken string) error {
	return r.table.swapRefreshToken(id, oldToken, newToken)
}

// MemoryRecruiterRepository is an in-process RecruiterRepository.
type MemoryRecruiterRepository struct {
	table *memoryTable[*domain.Recruiter]
}

// NewMemoryRecruiterRepository returns an empty in-memory repository.
func NewMemoryRecruiterRepository() *MemoryRecruiterRepository {
	return &MemoryRecruiterRepository{table: newMemoryTable(func(r *domain.Recruiter) *domain.Recruiter {
		cp := *r
		cp.RefreshToken = copyToken(r.RefreshToken)
		return &cp
	})}
}

func (r *MemoryRecruiterRepository) Create(_ context.Context, recruiter *domain.Recruiter) error {
	return r.table.create(recruiter)
}

func (r *MemoryRecruiterRepository) GetByEmail(_ context.Context, email string) (*domain.Recruiter, error) {
	return r.table.find(func(a *domain.Account) bool { return a.Email == email })
}

func (r *MemoryRecruiterRepository) GetByRefreshToken(_ context.Context, token string) (*domain.Recruiter, error) {
	return r.table.find(func(a *domain.Account) bool { return a.RefreshToken != nil && *a.RefreshToken == token })
}

func (r *MemoryRecruiterRepository) SetRefreshToken(_ context.Context, id int64, token *string) error {
	return r.table.setRefreshToken(id, token)
}

func (r *MemoryRecruiterRepository) SwapRefreshToken(_ context.Context, id int64, oldToken, newToken string) error {
	return r.table.swapRefreshToken(id, oldToken, newToken)
}
