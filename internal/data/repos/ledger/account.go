package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type AccountRepo interface {
	// CreateIfAbsent inserts the row unless the owner already has an account,
	// then returns the stored account and whether this call created it.
	CreateIfAbsent(dbc dbctx.Context, row *types.Account) (*types.Account, bool, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Account, error)
	GetByOwnerID(dbc dbctx.Context, ownerID uuid.UUID) (*types.Account, error)
	ListByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Account, error)
	ListAll(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Account, error)

	// LockByID takes an exclusive row lock for the rest of dbc.Tx.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Account, error)

	UpdateBalances(dbc dbctx.Context, id uuid.UUID, balance, totalEarned decimal.Decimal, now time.Time) error
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return &accountRepo{db: db, log: baseLog.With("repo", "AccountRepo")}
}

func (r *accountRepo) CreateIfAbsent(dbc dbctx.Context, row *types.Account) (*types.Account, bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.OwnerID == uuid.Nil {
		return nil, false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "owner_id"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return row, true, nil
	}
	existing, err := r.GetByOwnerID(dbc, row.OwnerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *accountRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Account, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.ListByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *accountRepo) GetByOwnerID(dbc dbctx.Context, ownerID uuid.UUID) (*types.Account, error) {
	if ownerID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Account
	if err := t.WithContext(dbc.Ctx).Where("owner_id = ?", ownerID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *accountRepo) ListByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Account
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll pages accounts in id order; pass the last seen id as afterID.
func (r *accountRepo) ListAll(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	q := t.WithContext(dbc.Ctx).Order("id ASC").Limit(limit)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	var out []*types.Account
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Account, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Account
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *accountRepo) UpdateBalances(dbc dbctx.Context, id uuid.UUID, balance, totalEarned decimal.Decimal, now time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":      balance,
			"total_earned": totalEarned,
			"updated_at":   now,
		}).Error
}
