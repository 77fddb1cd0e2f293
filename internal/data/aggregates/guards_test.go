package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/clubops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/clubops-backend/internal/domain"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

func TestRequireTransition(t *testing.T) {
	for _, to := range []string{types.ApplicationStatusPending, types.ApplicationStatusApproved, types.ApplicationStatusRejected} {
		require.NoError(t, RequireTransition("op", types.ApplicationStatusPending, to), to)
	}
	for _, from := range []string{types.ApplicationStatusApproved, types.ApplicationStatusRejected} {
		for _, to := range []string{types.ApplicationStatusPending, types.ApplicationStatusApproved, types.ApplicationStatusRejected} {
			err := RequireTransition("op", from, to)
			assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict), "%s -> %s: %v", from, to, err)
		}
	}
}

func TestRequireCASSuccess(t *testing.T) {
	require.NoError(t, RequireCASSuccess(true, "ok"))
	assert.ErrorIs(t, RequireCASSuccess(false, "stale"), ErrConflict)
}

func TestCASGuardTransition(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	subject := testutil.SeedSubject(t, ctx, tx, 1)
	app := testutil.SeedApplication(t, ctx, tx, subject.ID, subject.ID, types.ApplicationStatusPending)
	now := time.Now().UTC()

	g := NewCASGuard(db)
	err := g.Transition(dbc, "op", app.TableName(), app.ID, types.ApplicationStatusPending, types.ApplicationStatusRejected,
		map[string]any{"decided_at": now})
	require.NoError(t, err)

	var row types.AllocationApplication
	require.NoError(t, tx.WithContext(ctx).First(&row, "id = ?", app.ID).Error)
	assert.Equal(t, types.ApplicationStatusRejected, row.Status)
	require.NotNil(t, row.DecidedAt)

	// A caller still holding the stale PENDING read loses the status guard.
	err = g.Transition(dbc, "op", app.TableName(), app.ID, types.ApplicationStatusPending, types.ApplicationStatusApproved, nil)
	assert.ErrorIs(t, err, ErrConflict)

	err = g.Transition(dbc, "op", app.TableName(), app.ID, types.ApplicationStatusRejected, types.ApplicationStatusApproved, nil)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict))

	err = g.Transition(dbc, "op", "", app.ID, types.ApplicationStatusPending, types.ApplicationStatusApproved, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
