package app

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/observability"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
	"github.com/yungbote/clubops-backend/internal/services"
)

type Services struct {
	Ledger     domainagg.LedgerAggregate
	Redemption domainagg.RedemptionAggregate
	Allocation domainagg.AllocationAggregate
	Reward     domainagg.RewardAggregate
	Auditor    *aggregates.Auditor

	Query   services.QueryService
	Grants  services.GrantService
	Rewards services.RewardService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	base := aggregates.BaseDeps{
		DB:     db,
		Log:    log,
		Runner: aggregates.NewGormTxRunner(db, cfg.Tx),
		Hooks:  aggregates.NewObservabilityHooks(metrics),
		Events: clients.Events,
	}
	ledgerDeps := aggregates.LedgerAggregateDeps{Base: base, Accounts: r.Accounts, Transactions: r.Transactions}
	writer := aggregates.NewLedgerWriter(ledgerDeps)

	ledger := aggregates.NewLedgerAggregate(ledgerDeps)
	redemption := aggregates.NewRedemptionAggregate(aggregates.RedemptionAggregateDeps{
		Base:        base,
		Codes:       r.Codes,
		Granter:     aggregates.LedgerGranter{Ledger: writer},
		MaxAttempts: cfg.MaxCodeAttempts,
	})
	allocation := aggregates.NewAllocationAggregate(aggregates.AllocationAggregateDeps{
		Base:         base,
		Subjects:     r.Subjects,
		Memberships:  r.Memberships,
		Applications: r.Applications,
	})
	reward := aggregates.NewRewardAggregate(aggregates.RewardAggregateDeps{
		Base:    base,
		Markers: r.Markers,
		Ledger:  writer,
	})
	auditor := aggregates.NewAuditor(aggregates.AuditorDeps{
		Log:          log,
		Accounts:     r.Accounts,
		Transactions: r.Transactions,
		Codes:        r.Codes,
		Subjects:     r.Subjects,
		Memberships:  r.Memberships,
		Markers:      r.Markers,
	})

	catalog := services.RewardCatalog{}
	if path := strings.TrimSpace(cfg.RewardCatalogPath); path != "" {
		loaded, err := services.LoadRewardCatalog(path)
		if err != nil {
			return Services{}, fmt.Errorf("load reward catalog: %w", err)
		}
		catalog = loaded
		log.Info("Loaded reward catalog", "path", path, "rules", len(catalog))
	}

	return Services{
		Ledger:     ledger,
		Redemption: redemption,
		Allocation: allocation,
		Reward:     reward,
		Auditor:    auditor,
		Query: services.NewQueryService(log, services.QueryRepos{
			Accounts:     r.Accounts,
			Transactions: r.Transactions,
			Codes:        r.Codes,
			Subjects:     r.Subjects,
			Memberships:  r.Memberships,
			Applications: r.Applications,
			Markers:      r.Markers,
		}),
		Grants:  services.NewGrantService(log, ledger, cfg.GrantConcurrency),
		Rewards: services.NewRewardService(log, catalog, reward),
	}, nil
}
