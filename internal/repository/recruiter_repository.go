package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/securehire-auth/internal/domain"
)

// RecruiterRepository handles persistence for recruiters.
type RecruiterRepository interface {
	Create(ctx context.Context, recruiter *domain.Recruiter) error
	GetByEmail(ctx context.Context, email string) (*domain.Recruiter, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Recruiter, error)
	SetRefreshToken(ctx context.Context, id int64, token *string) error
	SwapRefreshToken(ctx context.Context, id int64, oldToken, newToken string) error
}

type recruiterRepository struct {
	db DBTX
}

// NewRecruiterRepository instantiates the repository.
func NewRecruiterRepository(db DBTX) RecruiterRepository {
	return &recruiterRepository{db: db}
}

const recruiterColumns = `id, company_name, email, phone, website, password_hash, is_blocked, refresh_token, created_at, updated_at`

func (r *recruiterRepository) Create(ctx context.Context, recruiter *domain.Recruiter) error {
	const query = `
        INSERT INTO recruiters (company_name, email, phone, website, password_hash, is_blocked)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		recruiter.CompanyName,
		recruiter.Email,
		recruiter.Phone,
		recruiter.Website,
		recruiter.PasswordHash,
		recruiter.Blocked,
	).Scan(&recruiter.ID, &recruiter.CreatedAt, &recruiter.UpdatedAt)
	return uniqueViolation(err)
}

func (r *recruiterRepository) GetByEmail(ctx context.Context, email string) (*domain.Recruiter, error) {
	query := `SELECT ` + recruiterColumns + ` FROM recruiters WHERE email=$1`
	return scanRecruiter(r.db.QueryRow(ctx, query, email))
}

func (r *recruiterRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.Recruiter, error) {
	query := `SELECT ` + recruiterColumns + ` FROM recruiters WHERE refresh_token=$1`
	return scanRecruiter(r.db.QueryRow(ctx, query, token))
}

func (r *recruiterRepository) SetRefreshToken(ctx context.Context, id int64, token *string) error {
	const query = `
        UPDATE recruiters SET refresh_token=$1, updated_at=NOW()
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

func (r *recruiterRepository) SwapRefreshToken(ctx context.Context, id int64, oldToken, newToken string) error {
	const query = `
        UPDATE recruiters SET refresh_token=$1, updated_at=NOW()
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

func scanRecruiter(row pgx.Row) (*domain.Recruiter, error) {
	var r domain.Recruiter
	if err := row.Scan(
		&r.ID,
		&r.CompanyName,
		&r.Email,
		&r.Phone,
		&r.Website,
		&r.PasswordHash,
		&r.Blocked,
		&r.RefreshToken,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}
