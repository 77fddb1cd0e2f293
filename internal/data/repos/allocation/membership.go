package allocation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type MembershipRepo interface {
	Create(dbc dbctx.Context, row *types.AllocationMembership) error

	GetBySubjectActor(dbc dbctx.Context, subjectID, actorID uuid.UUID) (*types.AllocationMembership, error)
	ListBySubject(dbc dbctx.Context, subjectID uuid.UUID) ([]*types.AllocationMembership, error)
	CountBySubject(dbc dbctx.Context, subjectID uuid.UUID) (int64, error)
}

type membershipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMembershipRepo(db *gorm.DB, baseLog *logger.Logger) MembershipRepo {
	return &membershipRepo{db: db, log: baseLog.With("repo", "AllocationMembershipRepo")}
}

func (r *membershipRepo) Create(dbc dbctx.Context, row *types.AllocationMembership) error {
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

func (r *membershipRepo) GetBySubjectActor(dbc dbctx.Context, subjectID, actorID uuid.UUID) (*types.AllocationMembership, error) {
	if subjectID == uuid.Nil || actorID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.AllocationMembership
	if err := t.WithContext(dbc.Ctx).
		Where("subject_id = ? AND actor_id = ?", subjectID, actorID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *membershipRepo) ListBySubject(dbc dbctx.Context, subjectID uuid.UUID) ([]*types.AllocationMembership, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.AllocationMembership
	if subjectID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("subject_id = ?", subjectID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *membershipRepo) CountBySubject(dbc dbctx.Context, subjectID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).Model(&types.AllocationMembership{}).Where("subject_id = ?", subjectID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
