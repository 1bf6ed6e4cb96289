package rbac

// DefaultCatalog returns the canonical catalog. ADMIN carries the full grant
// set, EDITOR covers content work, USER is read-only on products.
//
// manage:X is seeded as its own permission string; guards never expand it into
// the granular create/read/edit/delete actions, so roles that need both the
// coarse and the fine grant must be seeded with both.
func DefaultCatalog() Catalog {
	return Catalog{
		Permissions: []PermissionSeed{
			{Action: "read", Subject: "User", Description: "Read user records"},
			{Action: "manage", Subject: "User", Description: "Create, update and delete users"},
			{Action: "edit", Subject: "User", Description: "Edit user records"},
			{Action: "delete", Subject: "User", Description: "Delete user records"},
			{Action: "read", Subject: "Product", Description: "Read product records"},
			{Action: "manage", Subject: "Product", Description: "Create, update and delete products"},
			{Action: "create", Subject: "Article", Description: "Create articles"},
			{Action: "read", Subject: "Article", Description: "Read articles"},
			{Action: "edit", Subject: "Article", Description: "Edit articles"},
			{Action: "delete", Subject: "Article", Description: "Delete articles"},
			{Action: "create", Subject: "Image", Description: "Upload images"},
			{Action: "read", Subject: "Image", Description: "Read images"},
			{Action: "edit", Subject: "Image", Description: "Edit image metadata"},
			{Action: "delete", Subject: "Image", Description: "Delete images"},
		},
		Roles: []RoleSeed{
			{Name: RoleAdmin, Description: "System administrator with full access"},
			{Name: RoleEditor, Description: "Content editor with create and edit access"},
			{Name: RoleUser, Description: "Standard user with basic read access"},
		},
		Grants: map[string][]string{
			RoleAdmin: {
				"manage:User", "read:User", "edit:User", "delete:User",
				"manage:Product", "read:Product",
				"create:Article", "read:Article", "edit:Article", "delete:Article",
				"create:Image", "read:Image", "edit:Image", "delete:Image",
			},
			RoleEditor: {
				"read:User",
				"manage:Product",
				"create:Article", "read:Article", "edit:Article",
			},
			RoleUser: {
				"read:Product",
			},
		},
	}
}
