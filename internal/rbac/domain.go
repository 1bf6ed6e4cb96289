// Package rbac owns the role/permission catalog, the idempotent seeder that
// converges it, tenant-scoped role assignment, and the request-time guards.
package rbac

import (
	"fmt"
	"time"
)

// Canonical role names seeded by the catalog.
const (
	RoleAdmin  = "ADMIN"
	RoleEditor = "EDITOR"
	RoleUser   = "USER"
)

// Role is a named, globally-defined bundle of permissions.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Permission is an atomic capability identified by (action, subject).
type Permission struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Key returns the canonical string form "action:subject".
func (p Permission) Key() string {
	return PermissionKey(p.Action, p.Subject)
}

// PermissionKey composes the canonical "action:subject" string.
func PermissionKey(action, subject string) string {
	return fmt.Sprintf("%s:%s", action, subject)
}

// PermissionSeed declares one catalog permission.
type PermissionSeed struct {
	Action      string
	Subject     string
	Description string
}

// RoleSeed declares one catalog role.
type RoleSeed struct {
	Name        string
	Description string
}

// Catalog is the fixed table of roles, permissions and role→permission-key
// mappings the seeder converges to. Grants reference roles and permissions
// declared in the same catalog; dangling references are skipped, not fatal.
type Catalog struct {
	Roles       []RoleSeed
	Permissions []PermissionSeed
	Grants      map[string][]string
}
