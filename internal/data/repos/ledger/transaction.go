package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

// TransactionRepo is append-only: there is no update or delete path.
type TransactionRepo interface {
	Create(dbc dbctx.Context, row *types.Transaction) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Transaction, error)
	GetByIdempotencyKey(dbc dbctx.Context, key string) (*types.Transaction, error)
	ListByAccount(dbc dbctx.Context, accountID uuid.UUID, before *time.Time, limit int) ([]*types.Transaction, error)

	// SumsByAccount returns Σearn and Σspend recorded for the account.
	SumsByAccount(dbc dbctx.Context, accountID uuid.UUID) (earned decimal.Decimal, spent decimal.Decimal, err error)
	CountByIdempotencyKey(dbc dbctx.Context, key string) (int64, error)
}

const sumBatchSize = 1000

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return &transactionRepo{db: db, log: baseLog.With("repo", "TransactionRepo")}
}

func (r *transactionRepo) Create(dbc dbctx.Context, row *types.Transaction) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *transactionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Transaction, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Transaction
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *transactionRepo) GetByIdempotencyKey(dbc dbctx.Context, key string) (*types.Transaction, error) {
	if key == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Transaction
	if err := t.WithContext(dbc.Ctx).Where("idempotency_key = ?", key).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// ListByAccount returns newest first. before pages backwards by created_at.
func (r *transactionRepo) ListByAccount(dbc dbctx.Context, accountID uuid.UUID, before *time.Time, limit int) ([]*types.Transaction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Transaction
	if accountID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := t.WithContext(dbc.Ctx).Where("account_id = ?", accountID)
	if before != nil && !before.IsZero() {
		q = q.Where("created_at < ?", *before)
	}
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SumsByAccount adds amounts in Go; SQL SUM over a SQLite TEXT column would
// pass through REAL.
func (r *transactionRepo) SumsByAccount(dbc dbctx.Context, accountID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	earned, spent := decimal.Zero, decimal.Zero
	var batch []*types.Transaction
	err := t.WithContext(dbc.Ctx).
		Select("id", "type", "amount").
		Where("account_id = ?", accountID).
		FindInBatches(&batch, sumBatchSize, func(_ *gorm.DB, _ int) error {
			for _, row := range batch {
				switch row.Type {
				case types.TransactionTypeEarn:
					earned = earned.Add(row.Amount.Decimal)
				case types.TransactionTypeSpend:
					spent = spent.Add(row.Amount.Decimal)
				}
			}
			return nil
		}).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return earned, spent, nil
}

func (r *transactionRepo) CountByIdempotencyKey(dbc dbctx.Context, key string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).Model(&types.Transaction{}).Where("idempotency_key = ?", key).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
