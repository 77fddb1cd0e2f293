package reward

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type MarkerRepo interface {
	Create(dbc dbctx.Context, row *types.RewardMarker) error

	GetByScopeRole(dbc dbctx.Context, scope, role string) (*types.RewardMarker, error)
	ListByScope(dbc dbctx.Context, scope string) ([]*types.RewardMarker, error)
	ListAll(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.RewardMarker, error)

	SetTransaction(dbc dbctx.Context, id, transactionID uuid.UUID) error
}

type markerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMarkerRepo(db *gorm.DB, baseLog *logger.Logger) MarkerRepo {
	return &markerRepo{db: db, log: baseLog.With("repo", "RewardMarkerRepo")}
}

func (r *markerRepo) Create(dbc dbctx.Context, row *types.RewardMarker) error {
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

func (r *markerRepo) GetByScopeRole(dbc dbctx.Context, scope, role string) (*types.RewardMarker, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.RewardMarker
	if err := t.WithContext(dbc.Ctx).Where("scope = ? AND role = ?", scope, role).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *markerRepo) ListByScope(dbc dbctx.Context, scope string) ([]*types.RewardMarker, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.RewardMarker
	if err := t.WithContext(dbc.Ctx).Where("scope = ?", scope).Order("role ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll pages markers in id order; pass the last seen id as afterID.
func (r *markerRepo) ListAll(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.RewardMarker, error) {
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
	var out []*types.RewardMarker
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *markerRepo) SetTransaction(dbc dbctx.Context, id, transactionID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.RewardMarker{}).
		Where("id = ?", id).
		Update("transaction_id", transactionID).Error
}
