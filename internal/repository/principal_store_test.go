package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/securehire-auth/internal/domain"
)

func seedDirectory(t *testing.T) (*Principals, *MemoryCandidateRepository, *MemoryRecruiterRepository) {
	t.Helper()
	ctx := context.Background()
	candidates := NewMemoryCandidateRepository()
	recruiters := NewMemoryRecruiterRepository()

	require.NoError(t, candidates.Create(ctx, &domain.Candidate{
		Account: domain.Account{Email: "a@test.com", PasswordHash: "hash-a"},
		Name:    "Alice",
	}))
	require.NoError(t, recruiters.Create(ctx, &domain.Recruiter{
		Account:     domain.Account{Email: "hr@acme.com", PasswordHash: "hash-r"},
		CompanyName: "Acme",
	}))
	return NewPrincipals(candidates, recruiters), candidates, recruiters
}

func TestPrincipals_FindByEmail(t *testing.T) {
	dir, _, _ := seedDirectory(t)
	ctx := context.Background()

	p, err := dir.FindByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCandidate, p.Role())

	p, err = dir.FindByEmail(ctx, "hr@acme.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRecruiter, p.Role())

	_, err = dir.FindByEmail(ctx, "nobody@test.com")
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
}

func TestPrincipals_CandidateWinsOnSharedEmail(t *testing.T) {
	dir, _, recruiters := seedDirectory(t)
	ctx := context.Background()
	require.NoError(t, recruiters.Create(ctx, &domain.Recruiter{
		Account: domain.Account{Email: "a@test.com", PasswordHash: "other"},
	}))

	p, err := dir.FindByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	assert.IsType(t, &domain.Candidate{}, p)

	p, err = dir.FindByEmailAs(ctx, "a@test.com", domain.RoleRecruiter)
	require.NoError(t, err)
	assert.IsType(t, &domain.Recruiter{}, p)
}

func TestPrincipals_FindByEmailAsIsolatesVariants(t *testing.T) {
	dir, _, _ := seedDirectory(t)
	ctx := context.Background()

	_, err := dir.FindByEmailAs(ctx, "hr@acme.com", domain.RoleCandidate)
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)

	_, err = dir.FindByEmailAs(ctx, "a@test.com", domain.RoleRecruiter)
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)

	_, err = dir.FindByEmailAs(ctx, "a@test.com", domain.Role("ADMIN"))
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
}

func TestPrincipals_RefreshSlotLifecycle(t *testing.T) {
	dir, _, _ := seedDirectory(t)
	ctx := context.Background()

	p, err := dir.FindByEmail(ctx, "hr@acme.com")
	require.NoError(t, err)
	require.NoError(t, dir.SetRefreshToken(ctx, p, "r1"))

	found, err := dir.FindByRefreshToken(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "hr@acme.com", found.Credentials().Email)

	require.NoError(t, dir.RotateRefreshToken(ctx, found, "r1", "r2"))
	assert.Equal(t, "r2", *found.Credentials().RefreshToken)

	_, err = dir.FindByRefreshToken(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)

	// the pre-rotation value is rejected even with a fresh read
	reloaded, err := dir.FindByEmail(ctx, "hr@acme.com")
	require.NoError(t, err)
	assert.ErrorIs(t, dir.RotateRefreshToken(ctx, reloaded, "r1", "r3"), domain.ErrRotationConflict)

	require.NoError(t, dir.ClearRefreshToken(ctx, reloaded))
	_, err = dir.FindByRefreshToken(ctx, "r2")
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
}

func TestPrincipals_RotateRejectsStaleLoadedPrincipal(t *testing.T) {
	dir, _, _ := seedDirectory(t)
	ctx := context.Background()

	p, err := dir.FindByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	require.NoError(t, dir.SetRefreshToken(ctx, p, "current"))

	stale, err := dir.FindByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	require.NoError(t, dir.RotateRefreshToken(ctx, p, "current", "next"))

	// stale still believes "current" is on record; the store-level swap must refuse
	assert.ErrorIs(t, dir.RotateRefreshToken(ctx, stale, "current", "other"), domain.ErrRotationConflict)
}

func TestPrincipals_ConcurrentRotationExactlyOneWins(t *testing.T) {
	dir, _, _ := seedDirectory(t)
	ctx := context.Background()

	p, err := dir.FindByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	require.NoError(t, dir.SetRefreshToken(ctx, p, "stale"))

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		loaded, err := dir.FindByEmail(ctx, "a@test.com")
		require.NoError(t, err)
		wg.Add(1)
		go func(n int, principal domain.Principal) {
			defer wg.Done()
			<-start
			err := dir.RotateRefreshToken(ctx, principal, "stale", "new-"+string(rune('a'+n)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, domain.ErrRotationConflict) {
				conflicts++
			}
		}(i, loaded)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)
}

func TestSlotHolds(t *testing.T) {
	token := "abc"
	p := &domain.Candidate{Account: domain.Account{RefreshToken: &token}}

	assert.True(t, SlotHolds(p, "abc"))
	assert.False(t, SlotHolds(p, "abd"))
	assert.False(t, SlotHolds(p, ""))
	assert.False(t, SlotHolds(&domain.Candidate{}, "abc"))
	assert.False(t, SlotHolds(nil, "abc"))
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCandidateRepository()
	require.NoError(t, repo.Create(ctx, &domain.Candidate{Account: domain.Account{Email: "c@test.com"}}))

	c, err := repo.GetByEmail(ctx, "c@test.com")
	require.NoError(t, err)
	c.Email = "mutated@test.com"

	_, err = repo.GetByEmail(ctx, "c@test.com")
	assert.NoError(t, err)

	err = repo.Create(ctx, &domain.Candidate{Account: domain.Account{Email: "c@test.com"}})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestPrincipals_RegisterRejectsEmailFromOtherVariant(t *testing.T) {
	dir, _, _ := seedDirectory(t)
	ctx := context.Background()

	err := dir.Register(ctx, &domain.Recruiter{Account: domain.Account{Email: "a@test.com"}})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	r := &domain.Recruiter{Account: domain.Account{Email: "new@acme.com"}, CompanyName: "New"}
	require.NoError(t, dir.Register(ctx, r))
	assert.NotZero(t, r.ID)

	found, err := dir.FindByEmailAs(ctx, "new@acme.com", domain.RoleRecruiter)
	require.NoError(t, err)
	assert.Equal(t, "New", found.(*domain.Recruiter).CompanyName)
}
