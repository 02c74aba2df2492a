package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"membership-auth/internal/model"
)

type OtpRepository struct {
	pool *pgxpool.Pool
}

func NewOtpRepository(pool *pgxpool.Pool) *OtpRepository {
	return &OtpRepository{pool: pool}
}

// Upsert replaces any prior challenge for the email. At most one challenge
// exists per address at any time.
func (r *OtpRepository) Upsert(ctx context.Context, c model.OtpChallenge) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO otp_challenges (email, code, expires_at, consumed, created_at)
		 VALUES (lower($1), $2, $3, FALSE, $4)
		 ON CONFLICT (email)
		 DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at,
		               consumed = FALSE, created_at = EXCLUDED.created_at`,
		strings.TrimSpace(c.Email), c.Code, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert otp challenge: %w", err)
	}
	return nil
}

func (r *OtpRepository) Find(ctx context.Context, email string) (model.OtpChallenge, error) {
	var c model.OtpChallenge
	err := r.pool.QueryRow(ctx,
		`SELECT email, code, expires_at, consumed, created_at
		 FROM otp_challenges WHERE email = lower($1)`, strings.TrimSpace(email)).
		Scan(&c.Email, &c.Code, &c.ExpiresAt, &c.Consumed, &c.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.OtpChallenge{}, model.ErrOtpNotFound
	}
	if err != nil {
		return model.OtpChallenge{}, fmt.Errorf("find otp challenge: %w", err)
	}
	return c, nil
}

func (r *OtpRepository) MarkConsumed(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE otp_challenges SET consumed = TRUE WHERE email = lower($1)`,
		strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("consume otp challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOtpNotFound
	}
	return nil
}
