package app

import (
	"github.com/yungbote/clubops-backend/internal/http"
	"github.com/yungbote/clubops-backend/internal/observability"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, h Handlers, mw Middleware, metrics *observability.Metrics) *http.Server {
	log.Info("Wiring HTTP server...")
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	srv := http.NewServer(":"+cfg.Port, http.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		AuthMiddleware:    mw.Auth,
		HealthHandler:     h.Health,
		LedgerHandler:     h.Ledger,
		CodeHandler:       h.Code,
		AllocationHandler: h.Allocation,
		RewardHandler:     h.Reward,
		GrantHandler:      h.Grant,
		AuditHandler:      h.Audit,
	})
	if cfg.ShutdownTimeout > 0 {
		srv.ShutdownTimeout = cfg.ShutdownTimeout
	}
	return srv
}
