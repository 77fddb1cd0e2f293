package aggregates_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/clubops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/clubops-backend/internal/domain"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

func TestAuditReplayMatchesState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acct := h.account(t, "40")
	_, err := h.ledger.Spend(ctx, domainagg.SpendInput{AccountID: acct, Amount: dec("15.5")})
	require.NoError(t, err)

	issued, err := h.redemption.Issue(ctx, domainagg.IssueCodeInput{ResourceID: uuid.New(), GrantAmount: dec("3")})
	require.NoError(t, err)
	_, err = h.redemption.Redeem(ctx, domainagg.RedeemCodeInput{Code: issued.Code, RedeemerID: uuid.New()})
	require.NoError(t, err)

	subject := newSubject(t, h, 2)
	_, err = h.allocation.AllocateImmediate(ctx, domainagg.AllocateInput{SubjectID: subject, ActorID: uuid.New()})
	require.NoError(t, err)

	_, err = h.reward.Fire(ctx, domainagg.FireRewardInput{
		Scope:  "first-attendance:" + uuid.NewString(),
		Grants: []domainagg.RewardGrant{{Role: "guest", RecipientID: uuid.New(), Amount: dec("2")}},
	})
	require.NoError(t, err)

	rep, err := h.auditor.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Clean(), "%+v", rep.Drift)
	assert.GreaterOrEqual(t, rep.MarkersChecked, 1)
	assert.GreaterOrEqual(t, rep.AccountsChecked, 2)
	assert.GreaterOrEqual(t, rep.CodesChecked, 1)
	assert.GreaterOrEqual(t, rep.SubjectsChecked, 1)
}

func TestAuditReportsDrift(t *testing.T) {
	h := newHarness(t)
	if testutil.IsPostgres(h.db) {
		t.Skip("tampering would leak into the shared Postgres database")
	}
	ctx := context.Background()

	acct := h.account(t, "10")
	subject := newSubject(t, h, 3)
	_, err := h.allocation.AllocateImmediate(ctx, domainagg.AllocateInput{SubjectID: subject, ActorID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, h.db.Exec("UPDATE ledger_account SET balance = 99 WHERE id = ?", acct).Error)
	require.NoError(t, h.db.Exec("UPDATE allocation_subject SET allocated_count = 2 WHERE id = ?", subject).Error)

	rep, err := h.auditor.Verify(ctx)
	require.NoError(t, err)

	fields := map[string]string{}
	for _, d := range rep.Drift {
		fields[d.Kind+"."+d.Field] = d.ID
	}
	assert.Equal(t, acct.String(), fields["account.balance"])
	assert.Equal(t, subject.String(), fields["subject.count"])
}

func TestAuditReportsBrokenRewardMarkers(t *testing.T) {
	h := newHarness(t)
	if testutil.IsPostgres(h.db) {
		t.Skip("tampering would leak into the shared Postgres database")
	}
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	fire := func(role string) *types.RewardMarker {
		scope := "first-attendance:" + uuid.NewString()
		_, err := h.reward.Fire(ctx, domainagg.FireRewardInput{
			Scope:  scope,
			Grants: []domainagg.RewardGrant{{Role: role, RecipientID: uuid.New(), Amount: dec("4")}},
		})
		require.NoError(t, err)
		m, err := h.markers.GetByScopeRole(dbc, scope, role)
		require.NoError(t, err)
		require.NotNil(t, m)
		return m
	}
	unset := fire("host")
	dangling := fire("guest")
	foreign := fire("referee")

	other := h.account(t, "1")
	spend, err := h.ledger.Spend(ctx, domainagg.SpendInput{AccountID: other, Amount: dec("1")})
	require.NoError(t, err)

	require.NoError(t, h.db.Exec("UPDATE reward_marker SET transaction_id = NULL WHERE id = ?", unset.ID).Error)
	require.NoError(t, h.db.Exec("UPDATE reward_marker SET transaction_id = ? WHERE id = ?", uuid.New(), dangling.ID).Error)
	require.NoError(t, h.db.Exec("UPDATE reward_marker SET transaction_id = ? WHERE id = ?", spend.TransactionID, foreign.ID).Error)

	rep, err := h.auditor.Verify(ctx)
	require.NoError(t, err)

	got := map[string][]string{}
	for _, d := range rep.Drift {
		if d.Kind == "marker" {
			got[d.ID] = append(got[d.ID], d.Field)
		}
	}
	assert.Equal(t, []string{"transaction_id"}, got[unset.ID.String()])
	assert.Equal(t, []string{"transaction_id"}, got[dangling.ID.String()])
	assert.ElementsMatch(t, []string{"idempotency_key", "type"}, got[foreign.ID.String()])
	assert.GreaterOrEqual(t, rep.MarkersChecked, 3)
}
