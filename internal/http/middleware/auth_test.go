package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/clubops-backend/internal/platform/ctxutil"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

func authRouter(am *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.ActorID.String())
	})
	r.POST("/admin", am.RequireAuth(), am.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddlewareVerifiesTokens(t *testing.T) {
	am := NewAuthMiddleware(logger.Nop(), "test-secret")
	r := authRouter(am)
	actor := uuid.New()

	member, err := am.IssueToken(actor, ctxutil.RoleMember, time.Minute)
	require.NoError(t, err)
	admin, err := am.IssueToken(uuid.New(), ctxutil.RoleAdmin, time.Minute)
	require.NoError(t, err)
	expired, err := am.IssueToken(actor, ctxutil.RoleMember, -time.Minute)
	require.NoError(t, err)
	forged, err := NewAuthMiddleware(logger.Nop(), "other").IssueToken(actor, ctxutil.RoleAdmin, time.Minute)
	require.NoError(t, err)

	rec := do(r, http.MethodGet, "/me", member)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actor.String(), rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", expired).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", forged).Code)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/admin", member).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/admin", admin).Code)
}

func TestAuthMiddlewareWithoutSecretRejectsEverything(t *testing.T) {
	am := NewAuthMiddleware(logger.Nop(), "")
	assert.True(t, am.Enabled())
	r := authRouter(am)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/admin", "").Code)

	forged, err := NewAuthMiddleware(logger.Nop(), "other").IssueToken(uuid.New(), ctxutil.RoleAdmin, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/admin", forged).Code)

	_, err = am.IssueToken(uuid.New(), ctxutil.RoleAdmin, time.Minute)
	assert.Error(t, err)
}

func TestAuthMiddlewareDisabledRunsAsAdmin(t *testing.T) {
	am := NewDisabledAuthMiddleware(logger.Nop())
	assert.False(t, am.Enabled())
	assert.Equal(t, http.StatusNoContent, do(authRouter(am), http.MethodPost, "/admin", "").Code)

	_, err := am.IssueToken(uuid.New(), ctxutil.RoleAdmin, time.Minute)
	assert.Error(t, err)
}
