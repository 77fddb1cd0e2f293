package aggregates_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/clubops-backend/internal/data/aggregates"
	"github.com/yungbote/clubops-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

func TestGenerateCodeAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := aggregates.GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, aggregates.CodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(aggregates.CodeAlphabet, r), "unexpected rune %q in %s", r, code)
		}
	}
}

func TestRedemptionIssueAndRedeemGrantsPoints(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	issued, err := h.redemption.Issue(ctx, domainagg.IssueCodeInput{ResourceID: uuid.New(), GrantAmount: dec("25")})
	require.NoError(t, err)
	assert.Equal(t, 1, issued.Attempts)

	redeemer := uuid.New()
	res, err := h.redemption.Redeem(ctx, domainagg.RedeemCodeInput{Code: " " + strings.ToLower(issued.Code) + " ", RedeemerID: redeemer})
	require.NoError(t, err)
	assert.Equal(t, issued.Code, res.Code)
	assert.Equal(t, aggregates.GrantKindPoints, res.Grant.Kind)
	assert.True(t, res.Grant.Balance.Equal(dec("25")))

	acct, err := h.accounts.GetByOwnerID(dbctx.Context{Ctx: ctx}, redeemer)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, acct.ID, res.Grant.AccountID)

	row, err := h.codes.GetByCode(dbctx.Context{Ctx: ctx}, issued.Code)
	require.NoError(t, err)
	assert.True(t, row.Used())
	require.NotNil(t, row.RedeemedBy)
	assert.Equal(t, redeemer, *row.RedeemedBy)

	assert.Len(t, h.events.OfType(events.TypeCodeRedeemed), 1)
	assert.Len(t, h.events.OfType(events.TypeLedgerEarned), 1)
	h.requireClean(t)
}

func TestRedemptionZeroGrantIssuesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code := uniqueCode(t)
	testutil.SeedCode(t, ctx, h.db, code, dec("0"))

	res, err := h.redemption.Redeem(ctx, domainagg.RedeemCodeInput{Code: code, RedeemerID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, aggregates.GrantKindNone, res.Grant.Kind)
	assert.Empty(t, h.events.OfType(events.TypeLedgerEarned))
}

func TestRedemptionFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code := uniqueCode(t)
	testutil.SeedCode(t, ctx, h.db, code, dec("5"))

	_, err := h.redemption.Redeem(ctx, domainagg.RedeemCodeInput{Code: uniqueCode(t), RedeemerID: uuid.New()})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))

	_, err = h.redemption.Redeem(ctx, domainagg.RedeemCodeInput{Code: code, RedeemerID: uuid.New()})
	require.NoError(t, err)

	_, err = h.redemption.Redeem(ctx, domainagg.RedeemCodeInput{Code: code, RedeemerID: uuid.New()})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeAlreadyUsed))
	assert.NotEmpty(t, h.hooks.Conflicts)

	_, err = h.redemption.Revoke(ctx, domainagg.RevokeCodeInput{Code: code})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict))
}

func TestRedemptionRevokeUnused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code := uniqueCode(t)
	testutil.SeedCode(t, ctx, h.db, code, dec("5"))

	_, err := h.redemption.Revoke(ctx, domainagg.RevokeCodeInput{Code: strings.ToLower(code)})
	require.NoError(t, err)

	exists, err := h.codes.Exists(dbctx.Context{Ctx: ctx}, code)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = h.redemption.Revoke(ctx, domainagg.RevokeCodeInput{Code: code})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestRedemptionIssueRetriesCollisions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	taken, fresh := uniqueCode(t), uniqueCode(t)
	testutil.SeedCode(t, ctx, h.db, taken, dec("1"))

	candidates := []string{taken, taken, fresh}
	agg := aggregates.NewRedemptionAggregate(aggregates.RedemptionAggregateDeps{
		Base:  aggregates.BaseDeps{DB: h.db, Hooks: h.hooks},
		Codes: h.codes,
		Generate: func() (string, error) {
			next := candidates[0]
			candidates = candidates[1:]
			return next, nil
		},
	})
	res, err := agg.Issue(ctx, domainagg.IssueCodeInput{ResourceID: uuid.New(), GrantAmount: dec("1")})
	require.NoError(t, err)
	assert.Equal(t, fresh, res.Code)
	assert.Equal(t, 3, res.Attempts)
}

func TestRedemptionIssueExhaustsAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	taken := uniqueCode(t)
	testutil.SeedCode(t, ctx, h.db, taken, dec("1"))

	agg := aggregates.NewRedemptionAggregate(aggregates.RedemptionAggregateDeps{
		Base:        aggregates.BaseDeps{DB: h.db},
		Codes:       h.codes,
		Generate:    func() (string, error) { return taken, nil },
		MaxAttempts: 5,
	})
	_, err := agg.Issue(ctx, domainagg.IssueCodeInput{ResourceID: uuid.New()})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeGenerationExhausted), "%v", err)
}

func TestRedemptionConcurrentRedeemExactlyOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code := uniqueCode(t)
	testutil.SeedCode(t, ctx, h.db, code, dec("40"))

	winners := make(chan uuid.UUID, 1)
	out := runConcurrently(t, 40, func(int) error {
		redeemer := uuid.New()
		_, err := h.redemption.Redeem(ctx, domainagg.RedeemCodeInput{Code: code, RedeemerID: redeemer})
		if err == nil {
			winners <- redeemer
		}
		return err
	})
	assert.Equal(t, 1, out.counts[""])
	assert.Equal(t, 39, out.counts[domainagg.CodeAlreadyUsed])

	winner := <-winners
	row, err := h.codes.GetByCode(dbctx.Context{Ctx: ctx}, code)
	require.NoError(t, err)
	require.NotNil(t, row.RedeemedBy)
	assert.Equal(t, winner, *row.RedeemedBy)

	n, err := h.transactions.CountByIdempotencyKey(dbctx.Context{Ctx: ctx}, aggregates.RedeemIdempotencyKey(code))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	h.requireClean(t)
}

func uniqueCode(t *testing.T) string {
	t.Helper()
	code, err := aggregates.GenerateCode()
	require.NoError(t, err)
	return code
}
