package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbac-admin/models"
)

func testRole(code string, perms ...string) models.Role {
	r := models.Role{ID: code + "-id", Name: code, Code: code}
	for _, p := range perms {
		resource, action, _ := strings.Cut(p, ":")
		r.RolePermissions = append(r.RolePermissions, models.RolePermission{
			Permission: models.Permission{ID: p, Code: p, Resource: resource, Action: action},
		})
	}
	return r
}

func testUser(roles ...models.Role) *models.User {
	u := &models.User{ID: "u1", Username: "alice", Status: models.UserStatusActive}
	for _, r := range roles {
		u.UserRoles = append(u.UserRoles, models.UserRole{UserID: u.ID, RoleID: r.ID, Role: r})
	}
	return u
}

func TestDerivePermissions_Union(t *testing.T) {
	r1 := testRole("editor", "users:read", "posts:write")
	r2 := testRole("auditor", "users:read", "logs:read")

	set := DerivePermissions(testUser(r1, r2))

	assert.Equal(t, []string{"logs:read", "posts:write", "users:read"}, set.Slice())
	assert.Equal(t, DerivePermissions(testUser(r1)).Slice(), []string{"posts:write", "users:read"})
	assert.Empty(t, DerivePermissions(nil))
	assert.Empty(t, DerivePermissions(testUser()))
}

func TestPermissionSet_Intersects(t *testing.T) {
	readOnly := DerivePermissions(testUser(testRole("viewer", "users:read")))
	full := DerivePermissions(testUser(testRole("admin", "users:read", "users:delete")))

	assert.False(t, readOnly.Intersects([]string{"users:delete"}))
	assert.True(t, full.Intersects([]string{"users:delete"}))
	assert.True(t, readOnly.Intersects([]string{"users:delete", "users:read"}))
	assert.False(t, full.Intersects(nil))
}

func TestHasAnyRole(t *testing.T) {
	u := testUser(testRole("admin"), testRole("user"))

	assert.True(t, HasAnyRole(u, []string{"admin"}))
	assert.True(t, HasAnyRole(u, []string{"ops", "user"}))
	assert.False(t, HasAnyRole(u, []string{"ops"}))
	assert.False(t, HasAnyRole(nil, []string{"admin"}))
}

func TestNewUserView_OmitsPassword(t *testing.T) {
	u := testUser(testRole("admin", "user:create"))
	u.Password = "$2a$10$hash"
	u.Email = "alice@example.com"

	view := NewUserView(u)
	require.Len(t, view.Roles, 1)
	assert.Equal(t, "admin", view.Roles[0].Code)
	require.Len(t, view.Roles[0].Permissions, 1)
	assert.Equal(t, PermissionView{ID: "user:create", Code: "user:create", Resource: "user", Action: "create"}, view.Roles[0].Permissions[0])

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
	assert.NotContains(t, string(raw), "password")

	raw, err = json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
}
