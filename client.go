package session

import (
	"context"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
)

// Client wraps the remote identity/RBAC/menu API with per-resource
// single-flight caches and the permission resolver. Every remote or
// transport failure degrades to an empty fallback; nothing from this type
// reaches the UI layer as an error.
//
// Cache keys are scoped per identity (a hashid of the email claim) so a
// credential switch cannot serve another user's cached menus.
type Client struct {
	api      RemoteAPI
	session  *Session
	resolver *PermissionResolver
	logger   Logger

	menuTTL       time.Duration
	permissionTTL time.Duration

	menus       *Cache[[]MenuRecord]
	trees       *Cache[[]*NavigationNode]
	access      *Cache[bool]
	checks      *Cache[bool]
	roles       *Cache[[]string]
	permissions *Cache[[]string]
	departments *Cache[string]
}

// NewClient returns a Client bound to api and sess. A nil cfg uses the
// package defaults.
func NewClient(api RemoteAPI, sess *Session, cfg Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Client{
		api:           api,
		session:       sess,
		resolver:      NewPermissionResolver(),
		logger:        defLogger{},
		menuTTL:       cfg.GetMenuCacheTTL(),
		permissionTTL: cfg.GetPermissionCacheTTL(),
		menus:         NewCache[[]MenuRecord](),
		trees:         NewCache[[]*NavigationNode](),
		access:        NewCache[bool](),
		checks:        NewCache[bool](),
		roles:         NewCache[[]string](),
		permissions:   NewCache[[]string](),
		departments:   NewCache[string](),
	}
}

func (c *Client) WithLogger(logger Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithRoleMatcher swaps the role-tier matching convention used by
// PagePermissions.
func (c *Client) WithRoleMatcher(matcher RoleMatcher) *Client {
	c.resolver.WithRoleMatcher(matcher)
	return c
}

// UserMenus returns the cached menu records, fetching at most once per TTL
// window. Failures yield an empty slice and leave the cache unpopulated so
// the next call retries.
func (c *Client) UserMenus(ctx context.Context) []MenuRecord {
	key := "menus:" + c.identityScope(ctx)
	menus, err := c.menus.Get(ctx, key, c.menuTTL, c.fetchMenus)
	if err != nil {
		c.logger.Warn("user menus fetch failed: %v", err)
		return []MenuRecord{}
	}
	return menus
}

// NavigationTree returns the cached navigation forest built from the menu
// payload.
func (c *Client) NavigationTree(ctx context.Context) []*NavigationNode {
	key := "navtree:" + c.identityScope(ctx)
	tree, err := c.trees.Get(ctx, key, c.menuTTL, func(ctx context.Context) ([]*NavigationNode, error) {
		menus, err := c.menus.Get(ctx, "menus:"+c.identityScope(ctx), c.menuTTL, c.fetchMenus)
		if err != nil {
			return nil, err
		}
		return BuildNavigationTree(menus), nil
	})
	if err != nil {
		c.logger.Warn("navigation tree fetch failed: %v", err)
		return []*NavigationNode{}
	}
	return tree
}

// PageAccess reports whether the current user may open pageName. Failures
// report false.
func (c *Client) PageAccess(ctx context.Context, pageName string) bool {
	key := "access:" + c.identityScope(ctx) + ":" + pageName
	allowed, err := c.access.Get(ctx, key, c.permissionTTL, func(ctx context.Context) (bool, error) {
		return unwrap(c.api.CheckPageAccess(ctx, pageName))
	})
	if err != nil {
		c.logger.Warn("page access check failed for %q: %v", pageName, err)
		return false
	}
	return allowed
}

// HasPermission checks a single permission name remotely. Failures report
// false.
func (c *Client) HasPermission(ctx context.Context, permissionName string) bool {
	key := "check:" + c.identityScope(ctx) + ":" + permissionName
	granted, err := c.checks.Get(ctx, key, c.permissionTTL, func(ctx context.Context) (bool, error) {
		return unwrap(c.api.CheckPermission(ctx, permissionName))
	})
	if err != nil {
		c.logger.Warn("permission check failed for %q: %v", permissionName, err)
		return false
	}
	return granted
}

// UserRoles returns the cached role set. Failures yield an empty slice.
func (c *Client) UserRoles(ctx context.Context) []string {
	key := "roles:" + c.identityScope(ctx)
	roles, err := c.roles.Get(ctx, key, c.permissionTTL, func(ctx context.Context) ([]string, error) {
		return unwrap(c.api.FetchUserRoles(ctx))
	})
	if err != nil {
		c.logger.Warn("user roles fetch failed: %v", err)
		return []string{}
	}
	return roles
}

// UserPermissions returns the cached flat permission set. Failures yield
// an empty slice.
func (c *Client) UserPermissions(ctx context.Context) []string {
	key := "perms:" + c.identityScope(ctx)
	permissions, err := c.permissions.Get(ctx, key, c.permissionTTL, func(ctx context.Context) ([]string, error) {
		return unwrap(c.api.FetchUserPermissions(ctx))
	})
	if err != nil {
		c.logger.Warn("user permissions fetch failed: %v", err)
		return []string{}
	}
	return permissions
}

// UserDepartment reads the Department claim directly when present,
// otherwise falls back to the remote lookup. Failures yield "".
func (c *Client) UserDepartment(ctx context.Context) string {
	if department, ok := c.session.FindClaim(ctx, ClaimDepartment); ok && department != "" {
		return department
	}

	key := "department:" + c.identityScope(ctx)
	department, err := c.departments.Get(ctx, key, c.permissionTTL, func(ctx context.Context) (string, error) {
		return unwrap(c.api.FetchUserDepartment(ctx))
	})
	if err != nil {
		c.logger.Warn("user department fetch failed: %v", err)
		return ""
	}
	return department
}

// PagePermissions resolves the four CRUD flags for pageName from the
// remote permission and role sets.
func (c *Client) PagePermissions(ctx context.Context, pageName string) PagePermissions {
	permissions := c.UserPermissions(ctx)
	roles := c.UserRoles(ctx)
	return c.resolver.Resolve(permissions, roles, pageName)
}

// InvalidateAll drops every cached resource, e.g. after a credential
// change.
func (c *Client) InvalidateAll() {
	c.menus.Reset()
	c.trees.Reset()
	c.access.Reset()
	c.checks.Reset()
	c.roles.Reset()
	c.permissions.Reset()
	c.departments.Reset()
}

// BindSession registers an observer that flushes the caches on every
// session change. Returns the unsubscribe function.
func (c *Client) BindSession() func() {
	return c.session.OnChange(func(context.Context, SessionState) {
		c.InvalidateAll()
	})
}

func (c *Client) fetchMenus(ctx context.Context) ([]MenuRecord, error) {
	return unwrap(c.api.FetchUserMenus(ctx))
}

// identityScope derives a stable cache namespace from the email claim.
// Anonymous sessions share the "anon" scope.
func (c *Client) identityScope(ctx context.Context) string {
	email, ok := c.session.FindClaim(ctx, ClaimEmail)
	if !ok || email == "" {
		return "anon"
	}
	id, err := hashid.NewUUID(email)
	if err != nil {
		return email
	}
	return id.String()
}

// unwrap maps the remote envelope onto a value-or-error pair. Unsuccessful
// envelopes surface as ErrRemoteUnavailable so the cache stays
// unpopulated.
func unwrap[T any](envelope Envelope[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	if !envelope.Success {
		var zero T
		return zero, ErrRemoteUnavailable
	}
	return envelope.Data, nil
}
