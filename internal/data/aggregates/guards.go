package aggregates

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/clubops-backend/internal/domain"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

// applicationTransitions maps an application status to the statuses it may
// move to. PENDING -> PENDING is a note edit; APPROVED and REJECTED are final.
var applicationTransitions = map[string][]string{
	types.ApplicationStatusPending: {
		types.ApplicationStatusPending,
		types.ApplicationStatusApproved,
		types.ApplicationStatusRejected,
	},
}

// RequireTransition rejects an application status move the lifecycle does not allow.
func RequireTransition(op, from, to string) error {
	for _, s := range applicationTransitions[from] {
		if s == to {
			return nil
		}
	}
	return domainagg.NewError(domainagg.CodeConflict, op,
		fmt.Sprintf("application is %s; cannot move to %s", from, to), nil)
}

// CASGuard writes status changes as compare-and-set updates: the row changes
// only while it still holds the status the caller read.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// Transition moves the row from one status to another, applying extra column
// updates in the same statement. A row that already left from is a conflict.
func (g CASGuard) Transition(dbc dbctx.Context, op, table string, id uuid.UUID, from, to string, extra map[string]any) error {
	if err := RequireTransition(op, from, to); err != nil {
		return err
	}
	db, err := g.baseDB(dbc)
	if err != nil {
		return err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return ValidationError("table and id are required for a status transition")
	}
	updates := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		updates[k] = v
	}
	updates["status"] = to
	res := db.Table(table).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	return RequireCASSuccess(res.RowsAffected > 0, fmt.Sprintf("%s row left %s before moving to %s", table, from, to))
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
