package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/securehire-auth/internal/config"
	"github.com/spec-kit/securehire-auth/internal/domain"
	"github.com/spec-kit/securehire-auth/internal/repository"
)

const testPassword = "correct horse battery"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Secrets: config.Secrets{
			AccessSecret:  strings.Repeat("a", 32),
			RefreshSecret: strings.Repeat("r", 32),
		},
		RefreshTokenTTLSeconds: 86400,
		BcryptCost:             bcrypt.MinCost,
	}
}

func newTestCodec(t *testing.T, clock *fakeClock) *TokenCodec {
	t.Helper()
	tc, err := NewTokenCodec(testAuthConfig(), WithClock(clock.Now))
	require.NoError(t, err)
	return tc
}

// newTestDirectory seeds one candidate, one recruiter and one blocked candidate,
// all with testPassword.
func newTestDirectory(t *testing.T) *repository.Principals {
	t.Helper()
	return repository.NewPrincipals(newTestRepositories(t))
}

func newTestRepositories(t *testing.T) (*repository.MemoryCandidateRepository, *repository.MemoryRecruiterRepository) {
	t.Helper()
	ctx := context.Background()
	hash, err := HashPassword(testPassword, bcrypt.MinCost)
	require.NoError(t, err)

	candidates := repository.NewMemoryCandidateRepository()
	recruiters := repository.NewMemoryRecruiterRepository()
	require.NoError(t, candidates.Create(ctx, &domain.Candidate{
		Account: domain.Account{Email: "a@test.com", PasswordHash: hash},
		Name:    "Alice",
	}))
	require.NoError(t, candidates.Create(ctx, &domain.Candidate{
		Account: domain.Account{Email: "blocked@test.com", PasswordHash: hash, Blocked: true},
		Name:    "Blocked",
	}))
	require.NoError(t, recruiters.Create(ctx, &domain.Recruiter{
		Account:     domain.Account{Email: "hr@acme.com", PasswordHash: hash},
		CompanyName: "Acme",
	}))
	return candidates, recruiters
}
