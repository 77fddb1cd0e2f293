package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/clubops-backend/internal/http/handlers"
	httpMW "github.com/yungbote/clubops-backend/internal/http/middleware"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Ledger     *httpH.LedgerHandler
	Code       *httpH.CodeHandler
	Allocation *httpH.AllocationHandler
	Reward     *httpH.RewardHandler
	Grant      *httpH.GrantHandler
	Audit      *httpH.AuditHandler
}

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireHandlers(log *logger.Logger, db *gorm.DB, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Ledger:     httpH.NewLedgerHandler(s.Ledger, s.Query),
		Code:       httpH.NewCodeHandler(s.Redemption, s.Query),
		Allocation: httpH.NewAllocationHandler(s.Allocation, s.Query),
		Reward:     httpH.NewRewardHandler(s.Rewards, s.Query),
		Grant:      httpH.NewGrantHandler(s.Grants),
		Audit:      httpH.NewAuditHandler(s.Auditor),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.AuthDisabled && cfg.JWTSecret == "" {
		return Middleware{Auth: httpMW.NewDisabledAuthMiddleware(log)}
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecret),
	}
}
