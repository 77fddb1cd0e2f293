package aggregates_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/clubops-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/clubops-backend/internal/data/repos"
	repotest "github.com/yungbote/clubops-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
)

type harness struct {
	db     *gorm.DB
	hooks  *aggtest.HooksRecorder
	events *aggtest.EventRecorder

	accounts     repos.AccountRepo
	transactions repos.TransactionRepo
	codes        repos.RedemptionCodeRepo
	subjects     repos.AllocationSubjectRepo
	memberships  repos.AllocationMembershipRepo
	applications repos.AllocationApplicationRepo
	markers      repos.RewardMarkerRepo

	ledger     domainagg.LedgerAggregate
	redemption domainagg.RedemptionAggregate
	allocation domainagg.AllocationAggregate
	reward     domainagg.RewardAggregate
	auditor    *aggregates.Auditor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	h := &harness{
		db:           db,
		hooks:        &aggtest.HooksRecorder{},
		events:       &aggtest.EventRecorder{},
		accounts:     repos.NewAccountRepo(db, log),
		transactions: repos.NewTransactionRepo(db, log),
		codes:        repos.NewRedemptionCodeRepo(db, log),
		subjects:     repos.NewAllocationSubjectRepo(db, log),
		memberships:  repos.NewAllocationMembershipRepo(db, log),
		applications: repos.NewAllocationApplicationRepo(db, log),
		markers:      repos.NewRewardMarkerRepo(db, log),
	}
	base := aggregates.BaseDeps{
		DB:     db,
		Log:    log,
		Runner: aggregates.NewGormTxRunner(db, aggregates.TxOptions{LockTimeout: 10 * time.Second, StatementTimeout: 20 * time.Second}),
		Hooks:  h.hooks,
		Events: h.events,
	}
	ledgerDeps := aggregates.LedgerAggregateDeps{Base: base, Accounts: h.accounts, Transactions: h.transactions}
	writer := aggregates.NewLedgerWriter(ledgerDeps)

	h.ledger = aggregates.NewLedgerAggregate(ledgerDeps)
	h.redemption = aggregates.NewRedemptionAggregate(aggregates.RedemptionAggregateDeps{
		Base:    base,
		Codes:   h.codes,
		Granter: aggregates.LedgerGranter{Ledger: writer},
	})
	h.allocation = aggregates.NewAllocationAggregate(aggregates.AllocationAggregateDeps{
		Base:         base,
		Subjects:     h.subjects,
		Memberships:  h.memberships,
		Applications: h.applications,
	})
	h.reward = aggregates.NewRewardAggregate(aggregates.RewardAggregateDeps{
		Base:    base,
		Markers: h.markers,
		Ledger:  writer,
	})
	h.auditor = aggregates.NewAuditor(aggregates.AuditorDeps{
		Log:          log,
		Accounts:     h.accounts,
		Transactions: h.transactions,
		Codes:        h.codes,
		Subjects:     h.subjects,
		Memberships:  h.memberships,
		Markers:      h.markers,
	})
	return h
}

// account opens an account for a fresh owner and funds it with an earn.
func (h *harness) account(t *testing.T, funded string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	res, err := h.ledger.CreateAccount(ctx, domainagg.CreateAccountInput{OwnerID: uuid.New()})
	require.NoError(t, err)
	if funded != "" && funded != "0" {
		_, err = h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: res.AccountID, Amount: dec(funded), Reason: "seed"})
		require.NoError(t, err)
	}
	return res.AccountID
}

func (h *harness) requireClean(t *testing.T) {
	t.Helper()
	rep, err := h.auditor.Verify(context.Background())
	require.NoError(t, err)
	require.Empty(t, rep.Drift)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// outcomes tallies error codes from n concurrent calls; "" counts successes.
type outcomes struct {
	mu     sync.Mutex
	counts map[domainagg.ErrorCode]int
	other  []error
}

func (o *outcomes) record(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[domainagg.ErrorCode]int{}
	}
	code := domainagg.CodeOf(err)
	if err != nil && code == "" {
		o.other = append(o.other, err)
		return
	}
	o.counts[code]++
}

func runConcurrently(t *testing.T, n int, fn func(i int) error) *outcomes {
	t.Helper()
	out := &outcomes{}
	var g errgroup.Group
	g.SetLimit(32)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			out.record(fn(i))
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Empty(t, out.other)
	return out
}
