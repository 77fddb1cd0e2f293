package aggregates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

const (
	DefaultLockTimeout      = 5 * time.Second
	DefaultStatementTimeout = 10 * time.Second
)

// TxRunner provides a shared transaction boundary primitive for aggregate writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type TxOptions struct {
	// LockTimeout bounds the wait for an exclusive row lock.
	LockTimeout time.Duration
	// StatementTimeout bounds any single statement on Postgres; on SQLite it is
	// added to LockTimeout to bound the whole transaction.
	StatementTimeout time.Duration
}

type gormTxRunner struct {
	db   *gorm.DB
	opts TxOptions
}

// NewGormTxRunner returns a transaction runner backed by GORM transactions.
func NewGormTxRunner(db *gorm.DB, opts ...TxOptions) TxRunner {
	o := TxOptions{LockTimeout: DefaultLockTimeout, StatementTimeout: DefaultStatementTimeout}
	if len(opts) > 0 {
		if opts[0].LockTimeout > 0 {
			o.LockTimeout = opts[0].LockTimeout
		}
		if opts[0].StatementTimeout > 0 {
			o.StatementTimeout = opts[0].StatementTimeout
		}
	}
	return &gormTxRunner{db: db, opts: o}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}

	postgres := r.db.Dialector != nil && r.db.Dialector.Name() == "postgres"
	txCtx := ctx
	if !postgres {
		// SQLite: the single pooled connection is the lock; bound the wait for it.
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, r.opts.LockTimeout+r.opts.StatementTimeout)
		defer cancel()
	}

	err := r.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		if postgres {
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.opts.LockTimeout.Milliseconds())).Error; err != nil {
				return err
			}
			if err := tx.Exec(fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", r.opts.StatementTimeout.Milliseconds())).Error; err != nil {
				return err
			}
		}
		return fn(dbctx.Context{Ctx: txCtx, Tx: tx})
	})
	if err != nil && ctx.Err() == nil && errors.Is(txCtx.Err(), context.DeadlineExceeded) {
		var aggErr *domainagg.Error
		if !errors.As(err, &aggErr) {
			return errors.Join(RetryableError("lock wait exceeded"), err)
		}
	}
	return err
}
