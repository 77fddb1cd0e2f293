package redemption

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type CodeRepo interface {
	Create(dbc dbctx.Context, row *types.RedemptionCode) error

	GetByCode(dbc dbctx.Context, code string) (*types.RedemptionCode, error)
	Exists(dbc dbctx.Context, code string) (bool, error)
	ListByResource(dbc dbctx.Context, resourceID uuid.UUID, limit int) ([]*types.RedemptionCode, error)
	ListRedeemed(dbc dbctx.Context, afterCode string, limit int) ([]*types.RedemptionCode, error)

	LockByCode(dbc dbctx.Context, code string) (*types.RedemptionCode, error)

	// MarkRedeemed flips valid -> used, guarded on valid = true. It returns the rows affected.
	MarkRedeemed(dbc dbctx.Context, code string, redeemerID uuid.UUID, at time.Time) (int64, error)
	// DeleteUnused removes a code that is still valid. It returns the rows affected.
	DeleteUnused(dbc dbctx.Context, code string) (int64, error)
}

type codeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCodeRepo(db *gorm.DB, baseLog *logger.Logger) CodeRepo {
	return &codeRepo{db: db, log: baseLog.With("repo", "RedemptionCodeRepo")}
}

func (r *codeRepo) Create(dbc dbctx.Context, row *types.RedemptionCode) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *codeRepo) GetByCode(dbc dbctx.Context, code string) (*types.RedemptionCode, error) {
	if code == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.RedemptionCode
	if err := t.WithContext(dbc.Ctx).Where("code = ?", code).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.Code == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *codeRepo) Exists(dbc dbctx.Context, code string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).Model(&types.RedemptionCode{}).Where("code = ?", code).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *codeRepo) ListByResource(dbc dbctx.Context, resourceID uuid.UUID, limit int) ([]*types.RedemptionCode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.RedemptionCode
	if resourceID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if err := t.WithContext(dbc.Ctx).
		Where("resource_id = ?", resourceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *codeRepo) ListRedeemed(dbc dbctx.Context, afterCode string, limit int) ([]*types.RedemptionCode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	q := t.WithContext(dbc.Ctx).Where("valid = ?", false).Order("code ASC").Limit(limit)
	if afterCode != "" {
		q = q.Where("code > ?", afterCode)
	}
	var out []*types.RedemptionCode
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *codeRepo) LockByCode(dbc dbctx.Context, code string) (*types.RedemptionCode, error) {
	if code == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.RedemptionCode
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Code == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *codeRepo) MarkRedeemed(dbc dbctx.Context, code string, redeemerID uuid.UUID, at time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.RedemptionCode{}).
		Where("code = ? AND valid = ?", code, true).
		Updates(map[string]interface{}{
			"valid":       false,
			"redeemed_by": redeemerID,
			"redeemed_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}

func (r *codeRepo) DeleteUnused(dbc dbctx.Context, code string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("code = ? AND valid = ?", code, true).
		Delete(&types.RedemptionCode{})
	return res.RowsAffected, res.Error
}
