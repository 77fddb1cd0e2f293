package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var RewardAggregateContract = Contract{
	Name:             "Rewards.TriggerAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	LockedRoot:       "ledger_account",
	Notes: "Grants each (scope, role) reward at most once: a unique reward marker plus a derived ledger " +
		"idempotency key, each written in the recipient's own transaction.",
}

// RewardAggregate owns exactly-once reward crediting for triggering events.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeInvalidAmount, CodeNotFound, CodeRetryable, CodeInternal.
type RewardAggregate interface {
	Aggregate

	// Fire grants every role in the input at most once for the scope.
	Fire(ctx context.Context, in FireRewardInput) (FireRewardResult, error)
}

type RewardGrant struct {
	Role        string
	RecipientID uuid.UUID
	Amount      decimal.Decimal
	Reason      string
}

type FireRewardInput struct {
	Scope    string
	Grants   []RewardGrant
	Metadata map[string]any
}

const (
	RewardOutcomeRewarded = "rewarded"
	RewardOutcomeSkipped  = "skipped"
)

type RewardGrantResult struct {
	Role          string
	RecipientID   uuid.UUID
	Outcome       string
	TransactionID uuid.UUID
	Balance       decimal.Decimal
}

type FireRewardResult struct {
	Scope   string
	Results []RewardGrantResult
}

// RewardIdempotencyKey derives the ledger key for a scope/recipient pair.
func RewardIdempotencyKey(scope string, recipientID uuid.UUID) string {
	return "reward:" + scope + ":" + recipientID.String()
}
