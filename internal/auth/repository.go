package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-cms/lumen-cms/internal/platform/db"
	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
	"github.com/lumen-cms/lumen-cms/internal/rbac"
)

const uniqueViolation = "23505"

// Repository defines persistence operations for the auth module.
type Repository interface {
	GetRoleByName(ctx context.Context, name string) (rbac.Role, error)
	CreateCompanyAndAdmin(ctx context.Context, companyName string, admin NewUser, adminRoleID int64) (User, error)
	CreateUserWithRole(ctx context.Context, companyID int64, user NewUser, roleID int64) (User, error)
	GetLoginProjection(ctx context.Context, companyID int64, username string) (*LoginProjection, error)
	UserExistsInCompany(ctx context.Context, userID, companyID int64) (bool, error)
	GetUserInCompany(ctx context.Context, userID, companyID int64) (User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// GetRoleByName fetches a role by its unique name.
func (r *PGRepository) GetRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	var role rbac.Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, fmt.Errorf("auth: role %q: %w", name, httpx.ErrNotFound)
		}
		return rbac.Role{}, err
	}
	return role, nil
}

// CreateCompanyAndAdmin creates the company, its first user and the admin
// role binding in one transaction. A user can never exist without a company,
// so any failure rolls the whole sequence back.
func (r *PGRepository) CreateCompanyAndAdmin(ctx context.Context, companyName string, admin NewUser, adminRoleID int64) (User, error) {
	var created User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var companyID int64
		if err := tx.QueryRow(ctx, `INSERT INTO companies (name) VALUES ($1) RETURNING id`, companyName).Scan(&companyID); err != nil {
			return mapUnique(err, "company")
		}
		user, err := insertUser(ctx, tx, companyID, admin)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, user.ID, adminRoleID); err != nil {
			return mapUnique(err, "user role")
		}
		created = user
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return created, nil
}

// CreateUserWithRole creates a user under an existing company and binds the
// given role, atomically.
func (r *PGRepository) CreateUserWithRole(ctx context.Context, companyID int64, user NewUser, roleID int64) (User, error) {
	var created User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		inserted, err := insertUser(ctx, tx, companyID, user)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, inserted.ID, roleID); err != nil {
			return mapUnique(err, "user role")
		}
		created = inserted
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return created, nil
}

func insertUser(ctx context.Context, tx pgx.Tx, companyID int64, user NewUser) (User, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO users (company_id, username, email, password_hash, name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, company_id, username, email, password_hash, name, created_at`,
		companyID, user.Username, user.Email, user.PasswordHash, user.Name)
	var u User
	if err := row.Scan(&u.ID, &u.CompanyID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt); err != nil {
		return User{}, mapUnique(err, "user")
	}
	return u, nil
}

// GetLoginProjection loads the user scoped by (companyId, username) together
// with every role name and every granted permission key, in one query. The
// aggregated lists come back already distinct; flattening across roles still
// happens in the service so the union property does not depend on SQL.
func (r *PGRepository) GetLoginProjection(ctx context.Context, companyID int64, username string) (*LoginProjection, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.company_id, u.username, u.email, u.password_hash, u.name, u.created_at,
		       COALESCE(array_agg(DISTINCT r.name) FILTER (WHERE r.id IS NOT NULL), '{}'),
		       COALESCE(array_agg(DISTINCT p.action || ':' || p.subject) FILTER (WHERE p.id IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE u.company_id = $1 AND u.username = $2
		GROUP BY u.id`, companyID, username)

	proj := &LoginProjection{}
	err := row.Scan(
		&proj.User.ID, &proj.User.CompanyID, &proj.User.Username, &proj.User.Email,
		&proj.User.PasswordHash, &proj.User.Name, &proj.User.CreatedAt,
		&proj.Roles, &proj.Permissions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("auth: user %q: %w", username, httpx.ErrNotFound)
		}
		return nil, err
	}
	return proj, nil
}

// UserExistsInCompany is the identity liveness check: one indexed point
// lookup on the (company_id, username) table's primary key and tenant column.
func (r *PGRepository) UserExistsInCompany(ctx context.Context, userID, companyID int64) (bool, error) {
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

// GetUserInCompany fetches a user scoped to a tenant.
func (r *PGRepository) GetUserInCompany(ctx context.Context, userID, companyID int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, username, email, password_hash, name, created_at
		FROM users WHERE id = $1 AND company_id = $2`, userID, companyID).
		Scan(&u.ID, &u.CompanyID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("auth: user %d: %w", userID, httpx.ErrNotFound)
		}
		return User{}, err
	}
	return u, nil
}

// mapUnique converts a unique-constraint violation into the domain Conflict.
func mapUnique(err error, entity string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("auth: %s already exists: %w", entity, httpx.ErrDuplicate)
	}
	return err
}
