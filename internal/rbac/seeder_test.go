package rbac

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockSeedRepo struct {
	roles  map[string]int64
	perms  map[string]int64
	grants map[string]struct{}

	nextID int64

	roleUpserts  int
	permUpserts  int
	grantInserts int

	txError error
}

func newMockSeedRepo() *mockSeedRepo {
	return &mockSeedRepo{
		roles:  make(map[string]int64),
		perms:  make(map[string]int64),
		grants: make(map[string]struct{}),
		nextID: 1,
	}
}

func (m *mockSeedRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockSeedRepo) UpsertRole(ctx context.Context, name, description string) (int64, error) {
	m.roleUpserts++
	if id, ok := m.roles[name]; ok {
		return id, nil
	}
	id := m.nextID
	m.nextID++
	m.roles[name] = id
	return id, nil
}

func (m *mockSeedRepo) UpsertPermission(ctx context.Context, action, subject, description string) (int64, error) {
	m.permUpserts++
	key := PermissionKey(action, subject)
	if id, ok := m.perms[key]; ok {
		return id, nil
	}
	id := m.nextID
	m.nextID++
	m.perms[key] = id
	return id, nil
}

func (m *mockSeedRepo) EnsureRolePermission(ctx context.Context, roleID, permissionID int64) error {
	m.grantInserts++
	m.grants[fmt.Sprintf("%d:%d", roleID, permissionID)] = struct{}{}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ============================================================================
// TESTS
// ============================================================================

func TestSeedConvergesCatalog(t *testing.T) {
	repo := newMockSeedRepo()
	catalog := DefaultCatalog()
	seeder := NewSeeder(repo, discardLogger(), catalog)

	require.NoError(t, seeder.Seed(context.Background()))

	assert.Len(t, repo.roles, len(catalog.Roles))
	assert.Len(t, repo.perms, len(catalog.Permissions))

	wantGrants := 0
	for _, keys := range catalog.Grants {
		wantGrants += len(keys)
	}
	assert.Len(t, repo.grants, wantGrants)
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := newMockSeedRepo()
	seeder := NewSeeder(repo, discardLogger(), DefaultCatalog())

	require.NoError(t, seeder.Seed(context.Background()))
	rolesAfterFirst := len(repo.roles)
	permsAfterFirst := len(repo.perms)
	grantsAfterFirst := len(repo.grants)

	require.NoError(t, seeder.Seed(context.Background()))

	assert.Equal(t, rolesAfterFirst, len(repo.roles))
	assert.Equal(t, permsAfterFirst, len(repo.perms))
	assert.Equal(t, grantsAfterFirst, len(repo.grants))
}

func TestSeedSkipsUnknownPermissionKey(t *testing.T) {
	repo := newMockSeedRepo()
	catalog := Catalog{
		Roles:       []RoleSeed{{Name: RoleUser, Description: "Standard user"}},
		Permissions: []PermissionSeed{{Action: "read", Subject: "Product"}},
		Grants: map[string][]string{
			RoleUser: {"read:Product", "fly:Spaceship"},
		},
	}
	seeder := NewSeeder(repo, discardLogger(), catalog)

	require.NoError(t, seeder.Seed(context.Background()))

	// The dangling key is skipped, the valid one still lands.
	assert.Len(t, repo.grants, 1)
}

func TestSeedSkipsGrantForUnknownRole(t *testing.T) {
	repo := newMockSeedRepo()
	catalog := Catalog{
		Roles:       []RoleSeed{{Name: RoleUser}},
		Permissions: []PermissionSeed{{Action: "read", Subject: "Product"}},
		Grants: map[string][]string{
			"SUPERVISOR": {"read:Product"},
		},
	}
	seeder := NewSeeder(repo, discardLogger(), catalog)

	require.NoError(t, seeder.Seed(context.Background()))

	assert.Empty(t, repo.grants)
	assert.Len(t, repo.roles, 1)
}

func TestDefaultCatalogGrantCounts(t *testing.T) {
	catalog := DefaultCatalog()

	assert.Len(t, catalog.Grants[RoleAdmin], 14)
	assert.Len(t, catalog.Grants[RoleEditor], 5)
	assert.Len(t, catalog.Grants[RoleUser], 1)

	// Every granted key must be declared as a permission.
	declared := make(map[string]struct{}, len(catalog.Permissions))
	for _, p := range catalog.Permissions {
		declared[PermissionKey(p.Action, p.Subject)] = struct{}{}
	}
	for role, keys := range catalog.Grants {
		for _, key := range keys {
			_, ok := declared[key]
			assert.True(t, ok, "role %s grants undeclared permission %s", role, key)
		}
	}
}
