package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpH "github.com/yungbote/clubops-backend/internal/http/handlers"
	httpMW "github.com/yungbote/clubops-backend/internal/http/middleware"
	"github.com/yungbote/clubops-backend/internal/observability"
	"github.com/yungbote/clubops-backend/internal/platform/ctxutil"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
	"github.com/yungbote/clubops-backend/internal/services"
)

func TestRouterServesHealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Metrics:       observability.NewMetrics(),
		HealthHandler: httpH.NewHealthHandler(nil),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clubops_api_requests_total")
}

func TestRouterGuardsAdminRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am := httpMW.NewAuthMiddleware(logger.Nop(), "router-secret")
	r := NewRouter(RouterConfig{
		AuthMiddleware: am,
		RewardHandler:  httpH.NewRewardHandler(services.NewRewardService(logger.Nop(), nil, nil), nil),
	})

	member, err := am.IssueToken(uuid.New(), ctxutil.RoleMember, time.Minute)
	require.NoError(t, err)
	admin, err := am.IssueToken(uuid.New(), ctxutil.RoleAdmin, time.Minute)
	require.NoError(t, err)

	call := func(method, path, token string) int {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/api/v1/rewards/rules", ""))
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/api/v1/rewards/rules", member))
	assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/api/v1/rewards/first_visit/trigger", member))
	// Admin passes the guard and reaches the handler, which rejects the empty body.
	assert.Equal(t, http.StatusBadRequest, call(http.MethodPost, "/api/v1/rewards/first_visit/trigger", admin))
}
