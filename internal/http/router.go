package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/clubops-backend/internal/http/handlers"
	httpMW "github.com/yungbote/clubops-backend/internal/http/middleware"
	"github.com/yungbote/clubops-backend/internal/observability"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	LedgerHandler     *httpH.LedgerHandler
	CodeHandler       *httpH.CodeHandler
	AllocationHandler *httpH.AllocationHandler
	RewardHandler     *httpH.RewardHandler
	GrantHandler      *httpH.GrantHandler
	AuditHandler      *httpH.AuditHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins...))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	am := cfg.AuthMiddleware
	if am == nil {
		am = httpMW.NewAuthMiddleware(cfg.Log, "")
	}

	api := r.Group("/api/v1")
	// Auth runs before the logger so log lines carry the actor.
	api.Use(am.RequireAuth(), httpMW.RequestLogger(cfg.Log))
	admin := api.Group("/")
	admin.Use(am.RequireAdmin())

	// Ledger
	if h := cfg.LedgerHandler; h != nil {
		api.POST("/accounts", h.CreateAccount)
		api.GET("/accounts/:id", h.GetAccount)
		api.GET("/accounts/:id/transactions", h.ListTransactions)
		api.POST("/accounts/:id/spend", h.Spend)
		api.GET("/owners/:owner_id/account", h.GetAccountByOwner)
		admin.POST("/accounts/:id/earn", h.Earn)
	}

	// Redemption codes
	if h := cfg.CodeHandler; h != nil {
		api.POST("/codes/:code/redeem", h.Redeem)
		admin.POST("/codes", h.Issue)
		admin.GET("/codes/:code", h.Get)
		admin.DELETE("/codes/:code", h.Revoke)
		admin.GET("/resources/:resource_id/codes", h.ListByResource)
	}

	// Allocation
	if h := cfg.AllocationHandler; h != nil {
		api.GET("/subjects/:id", h.GetSubject)
		api.GET("/subjects/:id/members", h.ListMembers)
		api.POST("/subjects/:id/allocations", h.Allocate)
		api.POST("/subjects/:id/applications", h.Apply)
		api.PATCH("/applications/:id", h.UpdateApplication)
		admin.POST("/subjects", h.CreateSubject)
		admin.GET("/subjects/:id/applications", h.ListApplications)
		admin.POST("/applications/:id/approve", h.Approve)
		admin.POST("/applications/:id/reject", h.Reject)
	}

	// Rewards
	if h := cfg.RewardHandler; h != nil {
		api.GET("/rewards/rules", h.ListRules)
		admin.POST("/rewards/:rule/trigger", h.Trigger)
		admin.GET("/rewards/markers", h.ListMarkers)
	}

	if h := cfg.GrantHandler; h != nil {
		admin.POST("/grants", h.Grant)
		admin.POST("/grants/batch", h.BatchGrant)
	}

	if h := cfg.AuditHandler; h != nil {
		admin.POST("/admin/audit", h.Verify)
	}

	return r
}
