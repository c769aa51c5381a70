package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/securehire-auth/internal/domain"
)

// CandidateRepository defines persistence access for candidates.
type CandidateRepository interface {
	Create(ctx context.Context, candidate *domain.Candidate) error
	GetByEmail(ctx context.Context, email string) (*domain.Candidate, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Candidate, error)
	SetRefreshToken(ctx context.Context, id int64, token *string) error
	// SwapRefreshToken replaces the slot only if it still holds oldToken.
	SwapRefreshToken(ctx context.Context, id int64, oldToken, newToken string) error
}

type candidateRepository struct {
	db DBTX
}

// NewCandidateRepository returns a Postgres-backed implementation.
func NewCandidateRepository(db DBTX) CandidateRepository {
	return &candidateRepository{db: db}
}

const candidateColumns = `id, name, email, phone, password_hash, premium_user, is_blocked, refresh_token, created_at, updated_at`

func (r *candidateRepository) Create(ctx context.Context, candidate *domain.Candidate) error {
	const query = `
        INSERT INTO candidates (name, email, phone, password_hash, premium_user, is_blocked)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		candidate.Name,
		candidate.Email,
		candidate.Phone,
		candidate.PasswordHash,
		candidate.PremiumUser,
		candidate.Blocked,
	).Scan(&candidate.ID, &candidate.CreatedAt, &candidate.UpdatedAt)
	return uniqueViolation(err)
}

func (r *candidateRepository) GetByEmail(ctx context.Context, email string) (*domain.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE email=$1`
	return scanCandidate(r.db.QueryRow(ctx, query, email))
}

func (r *candidateRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE refresh_token=$1`
	return scanCandidate(r.db.QueryRow(ctx, query, token))
}

func (r *candidateRepository) SetRefreshToken(ctx context.Context, id int64, token *string) error {
	const query = `
        UPDATE candidates SET refresh_token=$1, updated_at=NOW()
        WHERE id=$2`

	cmd, err := r.db.Exec(ctx, query, token, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *candidateRepository) SwapRefreshToken(ctx context.Context, id int64, oldToken, newToken string) error {
	const query = `
        UPDATE candidates SET refresh_token=$1, updated_at=NOW()
        WHERE id=$2 AND refresh_token=$3`

	cmd, err := r.db.Exec(ctx, query, newToken, id, oldToken)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRotationConflict
	}
	return nil
}

func scanCandidate(row pgx.Row) (*domain.Candidate, error) {
	var c domain.Candidate
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.PasswordHash,
		&c.PremiumUser,
		&c.Blocked,
		&c.RefreshToken,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
