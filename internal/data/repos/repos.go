package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/data/repos/allocation"
	"github.com/yungbote/clubops-backend/internal/data/repos/ledger"
	"github.com/yungbote/clubops-backend/internal/data/repos/redemption"
	"github.com/yungbote/clubops-backend/internal/data/repos/reward"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type AccountRepo = ledger.AccountRepo
type TransactionRepo = ledger.TransactionRepo

type RedemptionCodeRepo = redemption.CodeRepo

type AllocationSubjectRepo = allocation.SubjectRepo
type AllocationMembershipRepo = allocation.MembershipRepo
type AllocationApplicationRepo = allocation.ApplicationRepo

type RewardMarkerRepo = reward.MarkerRepo

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return ledger.NewAccountRepo(db, baseLog)
}
func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return ledger.NewTransactionRepo(db, baseLog)
}

func NewRedemptionCodeRepo(db *gorm.DB, baseLog *logger.Logger) RedemptionCodeRepo {
	return redemption.NewCodeRepo(db, baseLog)
}

func NewAllocationSubjectRepo(db *gorm.DB, baseLog *logger.Logger) AllocationSubjectRepo {
	return allocation.NewSubjectRepo(db, baseLog)
}
func NewAllocationMembershipRepo(db *gorm.DB, baseLog *logger.Logger) AllocationMembershipRepo {
	return allocation.NewMembershipRepo(db, baseLog)
}
func NewAllocationApplicationRepo(db *gorm.DB, baseLog *logger.Logger) AllocationApplicationRepo {
	return allocation.NewApplicationRepo(db, baseLog)
}

func NewRewardMarkerRepo(db *gorm.DB, baseLog *logger.Logger) RewardMarkerRepo {
	return reward.NewMarkerRepo(db, baseLog)
}
