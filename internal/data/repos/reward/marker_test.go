package reward

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/clubops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/domain/money"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

func TestMarkerRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMarkerRepo(db, testutil.Logger(t))

	scope := "match:" + uuid.NewString()
	winner := &types.RewardMarker{Scope: scope, Role: "winner", RecipientID: uuid.New(), Amount: money.New(decimal.NewFromInt(100))}
	loser := &types.RewardMarker{Scope: scope, Role: "loser", RecipientID: uuid.New(), Amount: money.New(decimal.NewFromInt(20))}
	require.NoError(t, repo.Create(dbc, winner))
	require.NoError(t, repo.Create(dbc, loser))

	require.NoError(t, tx.SavePoint("dup").Error)
	err := repo.Create(dbc, &types.RewardMarker{Scope: scope, Role: "winner", RecipientID: uuid.New(), Amount: money.New(decimal.NewFromInt(100))})
	require.Error(t, err)
	require.NoError(t, tx.RollbackTo("dup").Error)

	txID := uuid.New()
	require.NoError(t, repo.SetTransaction(dbc, winner.ID, txID))

	got, err := repo.GetByScopeRole(dbc, scope, "winner")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.TransactionID)
	assert.Equal(t, txID, *got.TransactionID)

	all, err := repo.ListByScope(dbc, scope)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "loser", all[0].Role)

	seen := map[uuid.UUID]bool{}
	after := uuid.Nil
	for {
		page, err := repo.ListAll(dbc, after, 1)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		require.Len(t, page, 1)
		assert.False(t, seen[page[0].ID], "page repeated %s", page[0].ID)
		seen[page[0].ID] = true
		after = page[0].ID
	}
	assert.True(t, seen[winner.ID])
	assert.True(t, seen[loser.ID])
}
