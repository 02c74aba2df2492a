package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"membership-auth/internal/model"
)

// Postgres error codes used to classify constraint violations into
// domain errors instead of slicing driver message strings.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	return r.findOne(ctx, `WHERE lower(username) = lower($1)`, strings.TrimSpace(username))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, `WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role_id, session_token,
		        is_logged_in, otp_pending, created_at, updated_at
		 FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.SessionToken,
			&u.IsLoggedIn, &u.OtpPending, &u.CreatedAt, &u.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(username) = lower($1))`,
		strings.TrimSpace(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, role_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.RoleID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return model.ErrUserAlreadyExists
			case pgForeignKeyViolation:
				return model.ErrRoleNotFound
			}
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// BeginSession records the freshly minted token and flips the logged-in
// flag in one conditional update. The `is_logged_in = FALSE` guard is the
// single serialization point for the single-session rule: of two racing
// logins, exactly one update matches.
func (r *UserRepository) BeginSession(ctx context.Context, userID string, token string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET session_token = $2, is_logged_in = TRUE, otp_pending = TRUE, updated_at = $3
		 WHERE id = $1 AND is_logged_in = FALSE`,
		userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAlreadyLoggedIn
	}
	return nil
}

// ClearSession drops the stored token and logged-in flag together.
// Clearing an already-cleared session is a no-op success; only a missing
// record is an error.
func (r *UserRepository) ClearSession(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET session_token = NULL, is_logged_in = FALSE, otp_pending = FALSE, updated_at = $2
		 WHERE id = $1`,
		userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// SessionState returns the stored token (nil when logged out) and the
// OTP-pending flag for the liveness check on each authenticated request.
func (r *UserRepository) SessionState(ctx context.Context, userID string) (*string, bool, error) {
	var token *string
	var otpPending bool
	err := r.pool.QueryRow(ctx,
		`SELECT session_token, otp_pending FROM users WHERE id = $1`, userID).
		Scan(&token, &otpPending)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, model.ErrUserNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("read session state: %w", err)
	}
	return token, otpPending, nil
}

func (r *UserRepository) MarkOtpVerified(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET otp_pending = FALSE, updated_at = $2 WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark otp verified: %w", err)
	}
	return nil
}

// ListActiveSessions returns every record currently flagged logged-in with
// a non-null token. Input for the session sweeper.
func (r *UserRepository) ListActiveSessions(ctx context.Context) ([]model.ActiveSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, session_token, otp_pending
		 FROM users
		 WHERE is_logged_in = TRUE AND session_token IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.ActiveSession, 0)
	for rows.Next() {
		var s model.ActiveSession
		if err := rows.Scan(&s.UserID, &s.Username, &s.SessionToken, &s.OtpPending); err != nil {
			return nil, fmt.Errorf("scan active session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *UserRepository) List(ctx context.Context) ([]model.AuthUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, u.email, u.role_id, COALESCE(ro.role_name, ''), u.is_logged_in
		 FROM users u
		 LEFT JOIN roles ro ON ro.id = u.role_id
		 ORDER BY u.username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.AuthUser, 0)
	for rows.Next() {
		var u model.AuthUser
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.RoleID, &u.RoleName, &u.IsLoggedIn); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
