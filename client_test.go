package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/goliatone/go-session"
)

func newTestClient(api session.RemoteAPI) (*session.Client, *session.Session) {
	sess := newTestSession(session.NewMemoryStorage())
	client := session.NewClient(api, sess, nil).WithLogger(&captureLogger{})
	return client, sess
}

func authenticate(t *testing.T, ctx context.Context, sess *session.Session, email string) {
	t.Helper()
	token := makeToken(`{"sub":"u1","email":"` + email + `","exp":4102444800}`)
	sess.SetCredential(ctx, token)
}

func TestClient_UserMenus(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{
		menus: []session.MenuRecord{{ID: 1, Title: "Dashboard", DisplayOrder: 1}},
	}
	client, sess := newTestClient(api)
	authenticate(t, ctx, sess, "a@x.com")

	menus := client.UserMenus(ctx)
	require.Len(t, menus, 1)
	assert.Equal(t, "Dashboard", menus[0].Title)

	// Second call inside the TTL serves from cache.
	client.UserMenus(ctx)
	assert.Equal(t, int64(1), api.menuCalls.Load())
}

func TestClient_FallbacksOnTransportFailure(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{failAll: true}
	client, sess := newTestClient(api)
	authenticate(t, ctx, sess, "a@x.com")

	assert.Empty(t, client.UserMenus(ctx))
	assert.NotNil(t, client.UserMenus(ctx))
	assert.Empty(t, client.NavigationTree(ctx))
	assert.False(t, client.PageAccess(ctx, "Users"))
	assert.False(t, client.HasPermission(ctx, "users.view"))
	assert.Empty(t, client.UserRoles(ctx))
	assert.Empty(t, client.UserPermissions(ctx))
	assert.Equal(t, "", client.UserDepartment(ctx))
}

func TestClient_FallbacksOnUnsuccessfulEnvelope(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{unsuccessok: true}
	client, sess := newTestClient(api)
	authenticate(t, ctx, sess, "a@x.com")

	assert.Empty(t, client.UserMenus(ctx))
	assert.False(t, client.PageAccess(ctx, "Users"))
	assert.Empty(t, client.UserRoles(ctx))
}

func TestClient_FailedFetchRetriesNextCall(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{
		failAll: true,
		menus:   []session.MenuRecord{{ID: 1, Title: "Dashboard", DisplayOrder: 1}},
	}
	client, sess := newTestClient(api)
	authenticate(t, ctx, sess, "a@x.com")

	assert.Empty(t, client.UserMenus(ctx))
	require.Equal(t, int64(1), api.menuCalls.Load())

	// The failure left the cache unpopulated; recovery is immediate.
	api.failAll = false
	menus := client.UserMenus(ctx)
	assert.Len(t, menus, 1)
	assert.Equal(t, int64(2), api.menuCalls.Load())
}

func TestClient_NavigationTree(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{
		menus: []session.MenuRecord{
			{ID: 1, Title: "Reports", DisplayOrder: 2},
			{ID: 2, Title: "Dashboard", DisplayOrder: 1},
		},
	}
	client, sess := newTestClient(api)
	authenticate(t, ctx, sess, "a@x.com")

	tree := client.NavigationTree(ctx)
	require.Len(t, tree, 2)
	assert.Equal(t, "Dashboard", tree[0].Title)
	assert.True(t, tree[0].Expanded)

	// The tree cache reuses the menu fetch; repeated calls stay at one.
	client.NavigationTree(ctx)
	client.UserMenus(ctx)
	assert.Equal(t, int64(1), api.menuCalls.Load())
}

func TestClient_PagePermissions(t *testing.T) {
	ctx := context.Background()

	t.Run("family fallback overrides explicit set", func(t *testing.T) {
		api := &stubAPI{
			roles:       []string{"FinanceManager"},
			permissions: []string{"users.delete"},
		}
		client, sess := newTestClient(api)
		authenticate(t, ctx, sess, "a@x.com")

		result := client.PagePermissions(ctx, "Users")
		assert.Equal(t, session.PagePermissions{CanView: true, CanAdd: true, CanEdit: true}, result)
	})

	t.Run("super admin short-circuit", func(t *testing.T) {
		api := &stubAPI{roles: []string{"SuperAdmin"}}
		client, sess := newTestClient(api)
		authenticate(t, ctx, sess, "a@x.com")

		assert.Equal(t, session.AllPagePermissions(), client.PagePermissions(ctx, "Users"))
	})

	t.Run("degrades to no permissions when remote is down", func(t *testing.T) {
		api := &stubAPI{failAll: true}
		client, sess := newTestClient(api)
		authenticate(t, ctx, sess, "a@x.com")

		assert.Equal(t, session.PagePermissions{}, client.PagePermissions(ctx, "Users"))
	})
}

func TestClient_UserDepartmentPrefersClaim(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{department: "RemoteDept"}
	client, sess := newTestClient(api)

	token := makeToken(`{"sub":"u1","email":"a@x.com","Department":"Finance","exp":4102444800}`)
	sess.SetCredential(ctx, token)

	assert.Equal(t, "Finance", client.UserDepartment(ctx))
	assert.Equal(t, int64(0), api.deptCalls.Load())
}

func TestClient_UserDepartmentRemoteFallback(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{department: "Operations"}
	client, sess := newTestClient(api)
	authenticate(t, ctx, sess, "a@x.com")

	assert.Equal(t, "Operations", client.UserDepartment(ctx))
	assert.Equal(t, int64(1), api.deptCalls.Load())
}

func TestClient_CacheScopedPerIdentity(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{
		menus: []session.MenuRecord{{ID: 1, Title: "Dashboard", DisplayOrder: 1}},
	}
	client, sess := newTestClient(api)

	authenticate(t, ctx, sess, "a@x.com")
	client.UserMenus(ctx)
	require.Equal(t, int64(1), api.menuCalls.Load())

	// A different identity must not see the previous user's cache; the
	// credential change invalidates the snapshot, so the scope key moves
	// immediately.
	authenticate(t, ctx, sess, "b@x.com")
	client.UserMenus(ctx)
	assert.Equal(t, int64(2), api.menuCalls.Load())
}

func TestClient_BindSessionInvalidatesOnChange(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{
		menus: []session.MenuRecord{{ID: 1, Title: "Dashboard", DisplayOrder: 1}},
	}
	client, sess := newTestClient(api)
	unbind := client.BindSession()
	defer unbind()

	authenticate(t, ctx, sess, "a@x.com")
	client.UserMenus(ctx)
	require.Equal(t, int64(1), api.menuCalls.Load())

	// Re-authenticating the same user flushes the caches through the
	// change notification.
	authenticate(t, ctx, sess, "a@x.com")
	client.UserMenus(ctx)
	assert.Equal(t, int64(2), api.menuCalls.Load())
}
