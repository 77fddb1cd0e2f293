package domain

import (
	"github.com/yungbote/clubops-backend/internal/domain/allocation"
	"github.com/yungbote/clubops-backend/internal/domain/ledger"
	"github.com/yungbote/clubops-backend/internal/domain/redemption"
	"github.com/yungbote/clubops-backend/internal/domain/reward"
)

const (
	TransactionTypeEarn  = ledger.TransactionTypeEarn
	TransactionTypeSpend = ledger.TransactionTypeSpend

	MembershipSourceImmediate   = allocation.MembershipSourceImmediate
	MembershipSourceApplication = allocation.MembershipSourceApplication

	ApplicationStatusPending  = allocation.ApplicationStatusPending
	ApplicationStatusApproved = allocation.ApplicationStatusApproved
	ApplicationStatusRejected = allocation.ApplicationStatusRejected
)

type (
	Account     = ledger.Account
	Transaction = ledger.Transaction

	RedemptionCode = redemption.Code

	AllocationSubject     = allocation.Subject
	AllocationMembership  = allocation.Membership
	AllocationApplication = allocation.Application

	RewardMarker = reward.Marker
)

// Models lists every persisted row type, in migration order.
func Models() []any {
	return []any{
		&Account{},
		&Transaction{},
		&RedemptionCode{},
		&AllocationSubject{},
		&AllocationMembership{},
		&AllocationApplication{},
		&RewardMarker{},
	}
}
