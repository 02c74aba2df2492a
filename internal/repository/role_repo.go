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

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) Create(ctx context.Context, name string) (model.Role, error) {
	role := model.Role{Name: strings.TrimSpace(name), CreatedAt: time.Now().UTC()}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (role_name, created_at) VALUES ($1, $2) RETURNING id`,
		role.Name, role.CreatedAt).Scan(&role.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.Role{}, model.ErrRoleAlreadyExists
		}
		return model.Role{}, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id int64) (model.Role, error) {
	var role model.Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, role_name, created_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Role{}, model.ErrRoleNotFound
	}
	if err != nil {
		return model.Role{}, fmt.Errorf("find role by id: %w", err)
	}
	return role, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, role_name, created_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]model.Role, 0)
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) Update(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET role_name = $2 WHERE id = $1`, id, strings.TrimSpace(name))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.ErrRoleAlreadyExists
		}
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return model.ErrRoleInUse
		}
		return fmt.Errorf("delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrRoleNotFound
	}
	return nil
}
