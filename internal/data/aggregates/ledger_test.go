package aggregates_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/clubops-backend/internal/data/aggregates"
	"github.com/yungbote/clubops-backend/internal/data/repos"
	"github.com/yungbote/clubops-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

func TestLedgerEarnWithKeyAppliesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct := h.account(t, "0")
	key := "k1-" + uuid.NewString()

	first, err := h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: acct, Amount: dec("100"), Reason: "grant", IdempotencyKey: key})
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.True(t, first.Balance.Equal(dec("100")))

	again, err := h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: acct, Amount: dec("100"), Reason: "grant", IdempotencyKey: key})
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.True(t, again.Balance.Equal(dec("100")))
	assert.Equal(t, first.TransactionID, again.TransactionID)

	n, err := h.transactions.CountByIdempotencyKey(dbctx.Context{Ctx: ctx}, key)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.Len(t, h.events.OfType(events.TypeLedgerEarned), 1)
	assert.Len(t, h.hooks.Points, 1)
	h.requireClean(t)
}

func TestLedgerSpendInsufficientBalanceLeavesNoRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct := h.account(t, "50")

	_, err := h.ledger.Spend(ctx, domainagg.SpendInput{AccountID: acct, Amount: dec("80"), Reason: "shop"})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeInsufficientBalance))

	row, err := h.accounts.GetByID(dbctx.Context{Ctx: ctx}, acct)
	require.NoError(t, err)
	assert.True(t, row.Balance.Equal(dec("50")))

	txs, err := h.transactions.ListByAccount(dbctx.Context{Ctx: ctx}, acct, nil, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Empty(t, h.events.OfType(events.TypeLedgerSpent))
}

func TestLedgerSpendTracksBalanceAndTotals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct := h.account(t, "10.5")

	res, err := h.ledger.Spend(ctx, domainagg.SpendInput{AccountID: acct, Amount: dec("0.25"), Reason: "coffee"})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.Balance.Equal(dec("10.25")))
	assert.True(t, res.TotalEarned.Equal(dec("10.5")))
	assert.Len(t, h.events.OfType(events.TypeLedgerSpent), 1)
	h.requireClean(t)
}

func TestLedgerRejectsBadAmountsBeforeLocking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct := h.account(t, "0")

	for _, amount := range []string{"0", "-5", "0.000000001"} {
		_, err := h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: acct, Amount: dec(amount)})
		assert.True(t, domainagg.IsCode(err, domainagg.CodeInvalidAmount), "amount %s: %v", amount, err)
	}
	assert.Zero(t, h.hooks.OperationCount("Points.Ledger.Earn", string(domainagg.CodeInvalidAmount)))
}

func TestLedgerUnknownAccount(t *testing.T) {
	h := newHarness(t)
	_, err := h.ledger.Earn(context.Background(), domainagg.EarnInput{AccountID: uuid.New(), Amount: dec("1")})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestLedgerKeyReuseConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.account(t, "20")
	b := h.account(t, "20")
	key := "shared-" + uuid.NewString()

	_, err := h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: a, Amount: dec("5"), IdempotencyKey: key})
	require.NoError(t, err)

	_, err = h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: b, Amount: dec("5"), IdempotencyKey: key})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict), "other account: %v", err)

	_, err = h.ledger.Spend(ctx, domainagg.SpendInput{AccountID: a, Amount: dec("5"), IdempotencyKey: key})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict), "other type: %v", err)
	h.requireClean(t)
}

func TestLedgerCreateAccountIsIdempotentPerOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := uuid.New()

	first, err := h.ledger.CreateAccount(ctx, domainagg.CreateAccountInput{OwnerID: owner})
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := h.ledger.CreateAccount(ctx, domainagg.CreateAccountInput{OwnerID: owner})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.AccountID, second.AccountID)
}

func TestLedgerConcurrentSameKeyEarnAppliesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct := h.account(t, "0")
	key := "payment-" + uuid.NewString()

	applied := make(chan bool, 50)
	out := runConcurrently(t, 50, func(int) error {
		res, err := h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: acct, Amount: dec("7"), IdempotencyKey: key})
		if err == nil {
			applied <- res.Applied
		}
		return err
	})
	close(applied)
	require.Equal(t, 50, out.counts[""])

	n := 0
	for a := range applied {
		if a {
			n++
		}
	}
	assert.Equal(t, 1, n)

	row, err := h.accounts.GetByID(dbctx.Context{Ctx: ctx}, acct)
	require.NoError(t, err)
	assert.True(t, row.Balance.Equal(dec("7")))
	h.requireClean(t)
}

func TestLedgerConcurrentSpendsNeverOverdraw(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct := h.account(t, "100")

	out := runConcurrently(t, 60, func(i int) error {
		if i%3 == 0 {
			_, err := h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: acct, Amount: dec("1"), Reason: fmt.Sprintf("earn %d", i)})
			return err
		}
		_, err := h.ledger.Spend(ctx, domainagg.SpendInput{AccountID: acct, Amount: dec("3"), Reason: fmt.Sprintf("spend %d", i)})
		return err
	})

	spends := out.counts[""] - 20
	row, err := h.accounts.GetByID(dbctx.Context{Ctx: ctx}, acct)
	require.NoError(t, err)
	assert.False(t, row.Balance.IsNegative())
	assert.True(t, row.Balance.Equal(dec("120").Sub(dec("3").Mul(dec(fmt.Sprint(spends))))))
	assert.Equal(t, 40, spends+out.counts[domainagg.CodeInsufficientBalance])
	h.requireClean(t)
}

func TestLedgerWriterRequiresTransaction(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	w := aggregates.NewLedgerWriter(aggregates.LedgerAggregateDeps{
		Base: aggregates.BaseDeps{DB: db, Log: log},
	})
	_, err := w.EnsureAccountInTx(dbctx.Context{Ctx: context.Background()}, uuid.New())
	assert.ErrorIs(t, err, aggregates.ErrValidation)
}

func TestLedgerKeepsTwentyDigitAmountsExact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct := h.account(t, "0")
	amount := dec("123456789012.12345678")

	earned, err := h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: acct, Amount: amount, Reason: "bulk"})
	require.NoError(t, err)
	assert.True(t, earned.Balance.Equal(amount))

	row, err := h.accounts.GetByID(dbctx.Context{Ctx: ctx}, acct)
	require.NoError(t, err)
	assert.Equal(t, "123456789012.12345678", row.Balance.String())

	txs, err := h.transactions.ListByAccount(dbctx.Context{Ctx: ctx}, acct, nil, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "123456789012.12345678", txs[0].Amount.String())
	assert.Equal(t, "123456789012.12345678", txs[0].BalanceAfter.String())

	spent, err := h.ledger.Spend(ctx, domainagg.SpendInput{AccountID: acct, Amount: amount, Reason: "bulk"})
	require.NoError(t, err)
	assert.True(t, spent.Balance.IsZero(), "balance=%s", spent.Balance)

	_, err = h.ledger.Spend(ctx, domainagg.SpendInput{AccountID: acct, Amount: dec("0.00000001")})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeInsufficientBalance), "%v", err)
	h.requireClean(t)
}

func TestLedgerRejectsAmountsPastColumnRange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct := h.account(t, "0")

	for _, amount := range []string{"1000000000000", "99999999999999999999"} {
		_, err := h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: acct, Amount: dec(amount)})
		assert.True(t, domainagg.IsCode(err, domainagg.CodeInvalidAmount), "amount %s: %v", amount, err)
		_, err = h.ledger.Spend(ctx, domainagg.SpendInput{AccountID: acct, Amount: dec(amount)})
		assert.True(t, domainagg.IsCode(err, domainagg.CodeInvalidAmount), "amount %s: %v", amount, err)
	}

	top := dec("999999999999.99999999")
	_, err := h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: acct, Amount: top})
	require.NoError(t, err)
	_, err = h.ledger.Earn(ctx, domainagg.EarnInput{AccountID: acct, Amount: dec("0.00000001")})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeInvalidAmount), "%v", err)

	row, err := h.accounts.GetByID(dbctx.Context{Ctx: ctx}, acct)
	require.NoError(t, err)
	assert.True(t, row.Balance.Equal(top), "balance=%s", row.Balance)
	h.requireClean(t)
}

func TestLedgerStampsAccountWithInjectedClock(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	stamp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	accounts := repos.NewAccountRepo(db, log)
	transactions := repos.NewTransactionRepo(db, log)
	ledger := aggregates.NewLedgerAggregate(aggregates.LedgerAggregateDeps{
		Base:         aggregates.BaseDeps{DB: db, Log: log, Now: func() time.Time { return stamp }},
		Accounts:     accounts,
		Transactions: transactions,
	})
	ctx := context.Background()
	created, err := ledger.CreateAccount(ctx, domainagg.CreateAccountInput{OwnerID: uuid.New()})
	require.NoError(t, err)

	later := stamp.Add(time.Hour)
	ledger = aggregates.NewLedgerAggregate(aggregates.LedgerAggregateDeps{
		Base:         aggregates.BaseDeps{DB: db, Log: log, Now: func() time.Time { return later }},
		Accounts:     accounts,
		Transactions: transactions,
	})
	res, err := ledger.Earn(ctx, domainagg.EarnInput{AccountID: created.AccountID, Amount: dec("3")})
	require.NoError(t, err)
	assert.True(t, res.RecordedAt.Equal(later))

	row, err := accounts.GetByID(dbctx.Context{Ctx: ctx}, created.AccountID)
	require.NoError(t, err)
	assert.True(t, row.CreatedAt.Equal(stamp), "created_at=%s", row.CreatedAt)
	assert.True(t, row.UpdatedAt.Equal(later), "updated_at=%s", row.UpdatedAt)

	tx, err := transactions.GetByID(dbctx.Context{Ctx: ctx}, res.TransactionID)
	require.NoError(t, err)
	assert.True(t, tx.CreatedAt.Equal(row.UpdatedAt))
}
