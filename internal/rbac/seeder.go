package rbac

import (
	"context"
	"log/slog"
)

// SeederRepository is the persistence surface the seeder needs.
type SeederRepository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Seeder converges the database to the declared catalog. Running it twice
// with the same catalog is a no-op on round two.
type Seeder struct {
	repo    SeederRepository
	logger  *slog.Logger
	catalog Catalog
}

// NewSeeder constructs a Seeder for the given catalog.
func NewSeeder(repo SeederRepository, logger *slog.Logger, catalog Catalog) *Seeder {
	return &Seeder{repo: repo, logger: logger, catalog: catalog}
}

// Seed upserts roles, permissions and role grants inside one transaction:
// either the whole catalog converges or nothing changes. A grant that names a
// role or permission key not declared in the catalog is logged and skipped;
// a partial catalog must not block the rest of seeding.
func (s *Seeder) Seed(ctx context.Context) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		permIDs := make(map[string]int64, len(s.catalog.Permissions))
		for _, perm := range s.catalog.Permissions {
			id, err := tx.UpsertPermission(ctx, perm.Action, perm.Subject, perm.Description)
			if err != nil {
				return err
			}
			permIDs[PermissionKey(perm.Action, perm.Subject)] = id
		}

		roleIDs := make(map[string]int64, len(s.catalog.Roles))
		for _, role := range s.catalog.Roles {
			id, err := tx.UpsertRole(ctx, role.Name, role.Description)
			if err != nil {
				return err
			}
			roleIDs[role.Name] = id
		}

		for roleName, keys := range s.catalog.Grants {
			roleID, ok := roleIDs[roleName]
			if !ok {
				s.logger.Warn("seeder: grant references unknown role, skipping",
					slog.String("role", roleName))
				continue
			}
			for _, key := range keys {
				permID, ok := permIDs[key]
				if !ok {
					s.logger.Warn("seeder: unknown permission key, skipping",
						slog.String("role", roleName), slog.String("permission", key))
					continue
				}
				if err := tx.EnsureRolePermission(ctx, roleID, permID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
