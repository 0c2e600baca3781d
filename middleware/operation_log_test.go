package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbac-admin/models"
)

type captureRecorder struct {
	entries []*models.OperationLog
}

func (r *captureRecorder) Record(_ context.Context, entry *models.OperationLog) {
	r.entries = append(r.entries, entry)
}

func TestOperationLog_RecordsAuthenticatedRequests(t *testing.T) {
	rec := &captureRecorder{}
	deps := GuardDeps{Tokens: stubTokens{}, Identities: stubIdentities{"alice": userWith("alice", "admin")}}

	r := gin.New()
	r.PATCH("/users/:id", Guard(RouteRule{}, deps), OperationLog(rec), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	req := httptest.NewRequest(http.MethodPatch, "/users/42?verbose=1", strings.NewReader(`{"nickname":"x","password":"secret"}`))
	req.Header.Set("Authorization", "Bearer alice")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.entries, 1)

	e := rec.entries[0]
	assert.Equal(t, "alice", e.UserID)
	assert.Equal(t, http.MethodPatch, e.Method)
	assert.Equal(t, "/users/42", e.Path)
	assert.Equal(t, http.StatusOK, e.StatusCode)
	assert.JSONEq(t, `{"success":true}`, e.Response)
	assert.Contains(t, e.Params, `"id":"42"`)
	assert.Contains(t, e.Params, `"nickname":"x"`)
	assert.NotContains(t, e.Params, "secret")
}

func TestOperationLog_HandlerStillReadsBody(t *testing.T) {
	rec := &captureRecorder{}
	deps := GuardDeps{Tokens: stubTokens{}, Identities: stubIdentities{"alice": userWith("alice", "admin")}}

	r := gin.New()
	r.POST("/echo", Guard(RouteRule{}, deps), OperationLog(rec), func(c *gin.Context) {
		var in map[string]string
		require.NoError(t, c.ShouldBindJSON(&in))
		c.JSON(http.StatusCreated, in)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"b"}`))
	req.Header.Set("Authorization", "Bearer alice")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"a":"b"}`, w.Body.String())
}

func TestOperationLog_SkipsAnonymous(t *testing.T) {
	rec := &captureRecorder{}

	r := gin.New()
	r.GET("/health", OperationLog(rec), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rec.entries)
}
