package aggregates

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/domain/money"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

func TestIdempotencyGuardReserve(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	scope := "guard:" + uuid.NewString()
	insert := func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Create(&types.RewardMarker{
			ID:          uuid.New(),
			Scope:       scope,
			Role:        "winner",
			RecipientID: uuid.New(),
			Amount:      money.New(decimal.NewFromInt(5)),
		}).Error
	}

	var g IdempotencyGuard
	ok, err := g.Reserve(dbc, "reward marker", insert)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Reserve(dbc, "reward marker", insert)
	require.NoError(t, err)
	assert.False(t, ok)

	// The enclosing transaction is still usable after the collision.
	var n int64
	require.NoError(t, tx.WithContext(ctx).Model(&types.RewardMarker{}).Where("scope = ?", scope).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestIdempotencyGuardRequiresTx(t *testing.T) {
	var g IdempotencyGuard
	_, err := g.Reserve(dbctx.Context{Ctx: context.Background()}, "x", func(*gorm.DB) error { return nil })
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSavepointNameIsIdentifier(t *testing.T) {
	name := savepointName("ledger:txn key/ä")
	assert.Regexp(t, `^idem_[a-z0-9_]+_[0-9]+$`, name)
	assert.NotEqual(t, name, savepointName("ledger:txn key/ä"))
}
