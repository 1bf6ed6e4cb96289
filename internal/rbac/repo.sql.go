package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for the catalog and for
// user role assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes catalog operations inside a seeding transaction.
type TxRepository interface {
	UpsertRole(ctx context.Context, name, description string) (int64, error)
	UpsertPermission(ctx context.Context, action, subject, description string) (int64, error)
	EnsureRolePermission(ctx context.Context, roleID, permissionID int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction. Either every write in fn
// commits or none does.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// UpsertRole inserts the role if absent and returns its ID. An existing row
// keeps its description.
func (t *txRepo) UpsertRole(ctx context.Context, name, description string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO roles (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = roles.name
		RETURNING id`, name, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("rbac: upsert role %q: %w", name, err)
	}
	return id, nil
}

// UpsertPermission inserts the permission if absent and returns its ID.
func (t *txRepo) UpsertPermission(ctx context.Context, action, subject, description string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO permissions (action, subject, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (action, subject) DO UPDATE SET action = permissions.action
		RETURNING id`, action, subject, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("rbac: upsert permission %s:%s: %w", action, subject, err)
	}
	return id, nil
}

// EnsureRolePermission creates the join row only if absent.
func (t *txRepo) EnsureRolePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, permissionID)
	return err
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListPermissions returns all permissions ordered by subject then action.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, action, subject, description, created_at FROM permissions ORDER BY subject, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Subject, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// GetRoleByID fetches a role by primary key.
func (r *Repository) GetRoleByID(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("rbac: role %d: %w", id, httpx.ErrNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

// UserBelongsToCompany reports whether the user exists inside the given
// tenant. Cross-tenant users are indistinguishable from missing ones.
func (r *Repository) UserBelongsToCompany(ctx context.Context, userID, companyID int64) (bool, error) {
	var found int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 AND company_id = $2`, userID, companyID).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateUserRole inserts the (user, role) join row. A duplicate pair maps to
// httpx.ErrDuplicate so concurrent assignments surface as Conflict.
func (r *Repository) CreateUserRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("rbac: user %d already has role %d: %w", userID, roleID, httpx.ErrDuplicate)
		}
		return err
	}
	return nil
}

// DeleteUserRole removes the (user, role) join row. A missing pair maps to
// httpx.ErrNotFound.
func (r *Repository) DeleteUserRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rbac: user %d does not have role %d: %w", userID, roleID, httpx.ErrNotFound)
	}
	return nil
}

// UserHasRole reports whether the (user, role) pair is already present.
func (r *Repository) UserHasRole(ctx context.Context, userID, roleID int64) (bool, error) {
	var found int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
