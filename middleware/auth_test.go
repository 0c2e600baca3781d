package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbac-admin/models"
	"rbac-admin/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTokens struct{}

func (stubTokens) Verify(token string) (*services.Claims, error) {
	switch token {
	case "expired":
		return nil, services.ErrExpiredToken
	case "bad":
		return nil, services.ErrInvalidToken
	}
	c := &services.Claims{}
	c.Subject = token
	return c, nil
}

// stubIdentities 以令牌内容作为用户 ID
type stubIdentities map[string]*models.User

func (s stubIdentities) ResolveIdentity(_ context.Context, claims *services.Claims) (*models.User, error) {
	u, ok := s[claims.Subject]
	if !ok || !u.IsActive() {
		return nil, services.ErrUserUnavailable
	}
	return u, nil
}

func userWith(id string, roleCode string, perms ...string) *models.User {
	role := models.Role{ID: roleCode, Code: roleCode}
	for _, p := range perms {
		resource, action, _ := strings.Cut(p, ":")
		role.RolePermissions = append(role.RolePermissions, models.RolePermission{
			Permission: models.Permission{Code: p, Resource: resource, Action: action},
		})
	}
	return &models.User{
		ID:        id,
		Status:    models.UserStatusActive,
		UserRoles: []models.UserRole{{UserID: id, RoleID: role.ID, Role: role}},
	}
}

func newGuardedRouter(rule RouteRule, users stubIdentities) *gin.Engine {
	r := gin.New()
	r.GET("/x", Guard(rule, GuardDeps{Tokens: stubTokens{}, Identities: users}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c).ID})
	})
	return r
}

func doGet(r http.Handler, auth string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestGuard_PublicBypass(t *testing.T) {
	r := gin.New()
	r.GET("/x", Guard(RouteRule{Public: true}, GuardDeps{}), func(c *gin.Context) {
		assert.Nil(t, CurrentUser(c))
		c.Status(http.StatusNoContent)
	})

	w, _ := doGet(r, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGuard_Authentication(t *testing.T) {
	users := stubIdentities{
		"alice": userWith("alice", "user"),
		"off":   {ID: "off", Status: models.UserStatusDisabled},
	}
	r := newGuardedRouter(RouteRule{}, users)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing_token"},
		{"wrong scheme", "Basic alice", http.StatusUnauthorized, "missing_token"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "missing_token"},
		{"expired", "Bearer expired", http.StatusUnauthorized, "expired_token"},
		{"invalid", "Bearer bad", http.StatusUnauthorized, "invalid_token"},
		{"unknown user", "Bearer ghost", http.StatusUnauthorized, "user_unavailable"},
		{"disabled user", "Bearer off", http.StatusUnauthorized, "user_unavailable"},
		{"ok", "Bearer alice", http.StatusOK, ""},
		{"lowercase scheme", "bearer alice", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doGet(r, tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.code, body["code"])
			} else {
				assert.Equal(t, "alice", body["user"])
			}
		})
	}
}

func TestGuard_RoleStage(t *testing.T) {
	users := stubIdentities{
		"admin": userWith("admin", "admin"),
		"bob":   userWith("bob", "user"),
	}
	r := newGuardedRouter(RouteRule{Roles: []string{"admin", "owner"}}, users)

	w, _ := doGet(r, "Bearer admin")
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := doGet(r, "Bearer bob")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "insufficient_role", body["code"])
}

func TestGuard_PermissionStage(t *testing.T) {
	users := stubIdentities{
		"reader":  userWith("reader", "r", "users:read"),
		"deleter": userWith("deleter", "d", "users:read", "users:delete"),
	}
	r := newGuardedRouter(RouteRule{Permissions: []string{"users:delete"}}, users)

	w, body := doGet(r, "Bearer reader")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "insufficient_permission", body["code"])

	w, _ = doGet(r, "Bearer deleter")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_RoleCheckedBeforePermission(t *testing.T) {
	users := stubIdentities{"bob": userWith("bob", "user")}
	r := newGuardedRouter(RouteRule{Roles: []string{"admin"}, Permissions: []string{"user:create"}}, users)

	w, body := doGet(r, "Bearer bob")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "insufficient_role", body["code"])
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("  Bearer   abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearerToken("Bearer")
	assert.False(t, ok)
}
