package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the single authority carried by a principal and its tokens.
type Role string

const (
	RoleCandidate Role = "CANDIDATE"
	RoleRecruiter Role = "RECRUITER"
)

// ParseRole accepts only the two principal roles.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleCandidate:
		return RoleCandidate, nil
	case RoleRecruiter:
		return RoleRecruiter, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

func (r Role) String() string {
	return string(r)
}

// Account holds the credential fields both principal variants carry.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	// RefreshToken is the single slot for the currently accepted refresh token.
	RefreshToken *string
	Blocked      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is implemented only by *Candidate and *Recruiter.
type Principal interface {
	Role() Role
	Credentials() *Account
	isPrincipal()
}

// Candidate is a job seeker.
type Candidate struct {
	Account
	Name        string
	Phone       string
	PremiumUser bool
}

func (c *Candidate) Role() Role            { return RoleCandidate }
func (c *Candidate) Credentials() *Account { return &c.Account }
func (c *Candidate) isPrincipal()          {}

// Recruiter is a hiring company account.
type Recruiter struct {
	Account
	CompanyName string
	Phone       string
	Website     string
}

func (r *Recruiter) Role() Role            { return RoleRecruiter }
func (r *Recruiter) Credentials() *Account { return &r.Account }
func (r *Recruiter) isPrincipal()          {}

// NormalizeEmail is the canonical form used as the username.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
