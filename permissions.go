package session

import "strings"

// PagePermissions are the four CRUD capability flags for a single page.
type PagePermissions struct {
	CanView   bool `json:"can_view"`
	CanAdd    bool `json:"can_add"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

// AllPagePermissions grants every flag.
func AllPagePermissions() PagePermissions {
	return PagePermissions{CanView: true, CanAdd: true, CanEdit: true, CanDelete: true}
}

// RoleFamily is a capability tier inferred from a role name.
type RoleFamily string

const (
	FamilyAdmin   RoleFamily = "admin"
	FamilyManager RoleFamily = "manager"
	FamilyAnalyst RoleFamily = "analyst"
	FamilyStaff   RoleFamily = "staff"
)

// Grant returns the capability set a family confers.
func (f RoleFamily) Grant() PagePermissions {
	switch f {
	case FamilyAdmin:
		return AllPagePermissions()
	case FamilyManager:
		return PagePermissions{CanView: true, CanAdd: true, CanEdit: true}
	case FamilyAnalyst:
		return PagePermissions{CanView: true, CanAdd: true}
	case FamilyStaff:
		return PagePermissions{CanView: true}
	default:
		return PagePermissions{}
	}
}

// RoleMatcher maps a role set onto the capability tiers. The default
// implementation matches by naming convention; hosts with explicit
// role-tier tagging can swap it without touching resolver callers.
type RoleMatcher interface {
	IsSuperAdmin(roles []string) bool
	MatchFamily(roles []string) (RoleFamily, bool)
}

// FamilyRoleMatcher matches tiers by substring on the role name, so a new
// department role like "FinanceManager" inherits the Manager tier without
// code changes. Evaluation order is fixed: Admin, Manager,
// Analyst/Executive, Staff; first match wins.
type FamilyRoleMatcher struct{}

const superAdminRole = "superadmin"

// IsSuperAdmin reports whether roles contain the super-admin role. The
// match is exact (case-insensitive), not substring, so super-admin never
// leaks into the Admin family.
func (FamilyRoleMatcher) IsSuperAdmin(roles []string) bool {
	for _, role := range roles {
		if strings.EqualFold(role, superAdminRole) {
			return true
		}
	}
	return false
}

// MatchFamily returns the highest-priority family any role name matches.
func (m FamilyRoleMatcher) MatchFamily(roles []string) (RoleFamily, bool) {
	if m.containsAny(roles, "admin") {
		return FamilyAdmin, true
	}
	if m.containsAny(roles, "manager") {
		return FamilyManager, true
	}
	if m.containsAny(roles, "analyst", "executive") {
		return FamilyAnalyst, true
	}
	if m.containsAny(roles, "staff") {
		return FamilyStaff, true
	}
	return "", false
}

func (FamilyRoleMatcher) containsAny(roles []string, needles ...string) bool {
	for _, role := range roles {
		lower := strings.ToLower(role)
		if lower == superAdminRole {
			continue
		}
		for _, needle := range needles {
			if strings.Contains(lower, needle) {
				return true
			}
		}
	}
	return false
}

// PermissionResolver computes per-page CRUD flags from a flat
// permission/role set.
type PermissionResolver struct {
	matcher RoleMatcher
}

// NewPermissionResolver returns a resolver using the naming-convention
// matcher.
func NewPermissionResolver() *PermissionResolver {
	return &PermissionResolver{matcher: FamilyRoleMatcher{}}
}

func (r *PermissionResolver) WithRoleMatcher(matcher RoleMatcher) *PermissionResolver {
	if matcher != nil {
		r.matcher = matcher
	}
	return r
}

// Resolve applies, in order: super-admin short-circuit, explicit
// permission-name matching, then a single role-family fallback. A family
// match overwrites the explicit results rather than merging with them.
func (r *PermissionResolver) Resolve(permissions, roles []string, pageName string) PagePermissions {
	if r.matcher.IsSuperAdmin(roles) {
		return AllPagePermissions()
	}

	granted := make(map[string]struct{}, len(permissions))
	for _, permission := range permissions {
		granted[strings.ToLower(permission)] = struct{}{}
	}

	result := PagePermissions{
		CanView:   hasAction(granted, pageName, "view"),
		CanAdd:    hasAction(granted, pageName, "create"),
		CanEdit:   hasAction(granted, pageName, "update", "edit"),
		CanDelete: hasAction(granted, pageName, "delete"),
	}

	if family, ok := r.matcher.MatchFamily(roles); ok {
		return family.Grant()
	}

	return result
}

// hasAction checks the three permission naming conventions: dotted
// page-scoped ("users.view"), action-then-page ("ViewUsers"), and the bare
// action name. All comparisons are case-insensitive.
func hasAction(granted map[string]struct{}, pageName string, actions ...string) bool {
	page := strings.ToLower(pageName)
	for _, action := range actions {
		if _, ok := granted[page+"."+action]; ok {
			return true
		}
		if _, ok := granted[action+page]; ok {
			return true
		}
		if _, ok := granted[action]; ok {
			return true
		}
	}
	return false
}

// ResolvePagePermissions resolves with the default naming-convention
// matcher.
func ResolvePagePermissions(permissions, roles []string, pageName string) PagePermissions {
	return NewPermissionResolver().Resolve(permissions, roles, pageName)
}
