// Package policy is the single source of truth for what each role may see
// and do. Both the retrieval path and the document endpoints consume the
// same tables; nothing else in the codebase duplicates them.
package policy

import (
	"fmt"

	"ragineer/internal/models"
)

// Permissions beyond retrieval scoping, checked on the document and user
// management operations.
const (
	PermUploadDocs   = "upload_docs"
	PermDeleteDocs   = "delete_docs"
	PermManageUsers  = "manage_users"
	PermQueryAll     = "query_all"
	PermViewAll      = "view_all"
	PermQuerySOPs    = "query_sops"
	PermViewSOPs     = "view_sops"
	PermQueryLimited = "query_limited"
	PermViewLimited  = "view_limited"
)

var roleCategories = map[models.Role][]models.Category{
	models.RoleAdmin:      {models.CategorySOP, models.CategoryManual, models.CategoryCompliance, models.CategoryOther},
	models.RoleEngineer:   {models.CategorySOP, models.CategoryManual, models.CategoryCompliance, models.CategoryOther},
	models.RoleTechnician: {models.CategorySOP},
	models.RoleViewer:     {models.CategorySOP, models.CategoryManual},
}

var rolePermissions = map[models.Role][]string{
	models.RoleAdmin:      {PermUploadDocs, PermDeleteDocs, PermManageUsers, PermQueryAll, PermViewAll},
	models.RoleEngineer:   {PermUploadDocs, PermQueryAll, PermViewAll},
	models.RoleTechnician: {PermQuerySOPs, PermViewSOPs},
	models.RoleViewer:     {PermQueryLimited, PermViewLimited},
}

// AllowedCategories returns the document categories a role may retrieve. An
// unrecognized role fails closed: an error and zero categories, never full
// access.
func AllowedCategories(role models.Role) (map[models.Category]struct{}, error) {
	cats, ok := roleCategories[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownRole, role)
	}
	set := make(map[models.Category]struct{}, len(cats))
	for _, c := range cats {
		set[c] = struct{}{}
	}
	return set, nil
}

// Can reports whether the role holds the permission. Unknown roles hold
// nothing.
func Can(role models.Role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// Require is Can as an error: models.ErrForbidden when the permission is
// missing.
func Require(role models.Role, permission string) error {
	if !Can(role, permission) {
		return fmt.Errorf("%w: role %q lacks %s", models.ErrForbidden, role, permission)
	}
	return nil
}
