package allocation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type SubjectRepo interface {
	Create(dbc dbctx.Context, row *types.AllocationSubject) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AllocationSubject, error)
	ListAll(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.AllocationSubject, error)

	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.AllocationSubject, error)

	// IncrementCount adds one slot only while allocated_count < capacity.
	// Zero rows affected means the subject is full.
	IncrementCount(dbc dbctx.Context, id uuid.UUID, at time.Time) (int64, error)
}

type subjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	return &subjectRepo{db: db, log: baseLog.With("repo", "AllocationSubjectRepo")}
}

func (r *subjectRepo) Create(dbc dbctx.Context, row *types.AllocationSubject) error {
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

func (r *subjectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AllocationSubject, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.AllocationSubject
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *subjectRepo) ListAll(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.AllocationSubject, error) {
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
	var out []*types.AllocationSubject
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subjectRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.AllocationSubject, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.AllocationSubject
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

func (r *subjectRepo) IncrementCount(dbc dbctx.Context, id uuid.UUID, at time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.AllocationSubject{}).
		Where("id = ? AND allocated_count < capacity", id).
		Updates(map[string]interface{}{
			"allocated_count": gorm.Expr("allocated_count + 1"),
			"updated_at":      at,
		})
	return res.RowsAffected, res.Error
}
