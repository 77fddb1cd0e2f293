package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/data/repos"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type Repos struct {
	Accounts     repos.AccountRepo
	Transactions repos.TransactionRepo
	Codes        repos.RedemptionCodeRepo
	Subjects     repos.AllocationSubjectRepo
	Memberships  repos.AllocationMembershipRepo
	Applications repos.AllocationApplicationRepo
	Markers      repos.RewardMarkerRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Accounts:     repos.NewAccountRepo(db, log),
		Transactions: repos.NewTransactionRepo(db, log),
		Codes:        repos.NewRedemptionCodeRepo(db, log),
		Subjects:     repos.NewAllocationSubjectRepo(db, log),
		Memberships:  repos.NewAllocationMembershipRepo(db, log),
		Applications: repos.NewAllocationApplicationRepo(db, log),
		Markers:      repos.NewRewardMarkerRepo(db, log),
	}
}
