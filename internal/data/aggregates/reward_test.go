package aggregates_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

func TestRewardFireOncePerRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scope := "first-attendance:" + uuid.NewString()
	host, guest := uuid.New(), uuid.New()
	in := domainagg.FireRewardInput{
		Scope: scope,
		Grants: []domainagg.RewardGrant{
			{Role: "host", RecipientID: host, Amount: dec("30")},
			{Role: "guest", RecipientID: guest, Amount: dec("10")},
		},
		Metadata: map[string]any{"session": "s1"},
	}

	first, err := h.reward.Fire(ctx, in)
	require.NoError(t, err)
	require.Len(t, first.Results, 2)
	for _, r := range first.Results {
		assert.Equal(t, domainagg.RewardOutcomeRewarded, r.Outcome, r.Role)
	}

	second, err := h.reward.Fire(ctx, in)
	require.NoError(t, err)
	for i, r := range second.Results {
		assert.Equal(t, domainagg.RewardOutcomeSkipped, r.Outcome, r.Role)
		assert.Equal(t, first.Results[i].TransactionID, r.TransactionID)
	}

	acct, err := h.accounts.GetByOwnerID(dbctx.Context{Ctx: ctx}, host)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("30")))

	markers, err := h.markers.ListByScope(dbctx.Context{Ctx: ctx}, scope)
	require.NoError(t, err)
	assert.Len(t, markers, 2)
	assert.Len(t, h.events.OfType(events.TypeRewardGranted), 2)
	h.requireClean(t)
}

func TestRewardSameRecipientTwoRoles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	who := uuid.New()

	scope := "referral:" + uuid.NewString()
	res, err := h.reward.Fire(ctx, domainagg.FireRewardInput{
		Scope: scope,
		Grants: []domainagg.RewardGrant{
			{Role: "referrer", RecipientID: who, Amount: dec("5")},
			{Role: "referee", RecipientID: who, Amount: dec("5")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domainagg.RewardOutcomeRewarded, res.Results[0].Outcome)
	assert.Equal(t, domainagg.RewardOutcomeSkipped, res.Results[1].Outcome)
	assert.True(t, res.Results[1].Balance.Equal(dec("5")))

	markers, err := h.markers.ListByScope(dbctx.Context{Ctx: ctx}, scope)
	require.NoError(t, err)
	require.Len(t, markers, 2)
	for _, m := range markers {
		require.NotNil(t, m.TransactionID, m.Role)
		assert.Equal(t, res.Results[0].TransactionID, *m.TransactionID, m.Role)
	}
	h.requireClean(t)
}

func TestRewardValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	who := uuid.New()

	cases := map[string]domainagg.FireRewardInput{
		"no scope":  {Grants: []domainagg.RewardGrant{{Role: "r", RecipientID: who, Amount: dec("1")}}},
		"no grants": {Scope: "s"},
		"no role":   {Scope: "s", Grants: []domainagg.RewardGrant{{RecipientID: who, Amount: dec("1")}}},
		"dup role": {Scope: "s", Grants: []domainagg.RewardGrant{
			{Role: "r", RecipientID: who, Amount: dec("1")},
			{Role: "r", RecipientID: uuid.New(), Amount: dec("1")},
		}},
	}
	for name, in := range cases {
		_, err := h.reward.Fire(ctx, in)
		assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "%s: %v", name, err)
	}

	_, err := h.reward.Fire(ctx, domainagg.FireRewardInput{Scope: "s", Grants: []domainagg.RewardGrant{{Role: "r", RecipientID: who, Amount: dec("0")}}})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeInvalidAmount))
}

func TestRewardConcurrentTriggersCreditOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scope := "streak:" + uuid.NewString()
	winner, runnerUp := uuid.New(), uuid.New()

	rewarded := make(chan string, 100)
	out := runConcurrently(t, 30, func(int) error {
		res, err := h.reward.Fire(ctx, domainagg.FireRewardInput{
			Scope: scope,
			Grants: []domainagg.RewardGrant{
				{Role: "winner", RecipientID: winner, Amount: dec("100")},
				{Role: "runner_up", RecipientID: runnerUp, Amount: dec("50")},
			},
		})
		for _, r := range res.Results {
			if r.Outcome == domainagg.RewardOutcomeRewarded {
				rewarded <- r.Role
			}
		}
		return err
	})
	close(rewarded)
	assert.Equal(t, 30, out.counts[""])

	perRole := map[string]int{}
	for role := range rewarded {
		perRole[role]++
	}
	assert.Equal(t, map[string]int{"winner": 1, "runner_up": 1}, perRole)

	acct, err := h.accounts.GetByOwnerID(dbctx.Context{Ctx: ctx}, winner)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("100")))
	h.requireClean(t)
}
