package allocation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type ApplicationRepo interface {
	Create(dbc dbctx.Context, row *types.AllocationApplication) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AllocationApplication, error)
	GetPendingBySubjectActor(dbc dbctx.Context, subjectID, actorID uuid.UUID) (*types.AllocationApplication, error)
	ListBySubject(dbc dbctx.Context, subjectID uuid.UUID, statuses []string, limit int) ([]*types.AllocationApplication, error)

	UpdateNote(dbc dbctx.Context, id uuid.UUID, note string, at time.Time) (int64, error)
}

type applicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApplicationRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationRepo {
	return &applicationRepo{db: db, log: baseLog.With("repo", "AllocationApplicationRepo")}
}

func (r *applicationRepo) Create(dbc dbctx.Context, row *types.AllocationApplication) error {
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

func (r *applicationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AllocationApplication, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.AllocationApplication
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *applicationRepo) GetPendingBySubjectActor(dbc dbctx.Context, subjectID, actorID uuid.UUID) (*types.AllocationApplication, error) {
	if subjectID == uuid.Nil || actorID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.AllocationApplication
	if err := t.WithContext(dbc.Ctx).
		Where("subject_id = ? AND actor_id = ? AND status = ?", subjectID, actorID, types.ApplicationStatusPending).
		Order("created_at DESC").
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *applicationRepo) ListBySubject(dbc dbctx.Context, subjectID uuid.UUID, statuses []string, limit int) ([]*types.AllocationApplication, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.AllocationApplication
	if subjectID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 200
	}
	q := t.WithContext(dbc.Ctx).Where("subject_id = ?", subjectID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("created_at ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateNote only touches PENDING rows.
func (r *applicationRepo) UpdateNote(dbc dbctx.Context, id uuid.UUID, note string, at time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.AllocationApplication{}).
		Where("id = ? AND status = ?", id, types.ApplicationStatusPending).
		Updates(map[string]interface{}{
			"note":       note,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}
