package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var LedgerAggregateContract = Contract{
	Name:             "Points.LedgerAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	LockedRoot:       "ledger_account",
	Notes:            "Owns balance + append-only transaction log consistency; idempotency keys are unique across the log.",
}

// LedgerAggregate owns point balance invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeInvalidAmount, CodeNotFound, CodeInsufficientBalance, CodeConflict, CodeRetryable, CodeInternal.
type LedgerAggregate interface {
	Aggregate

	// CreateAccount returns the owner's account, creating it on first call.
	CreateAccount(ctx context.Context, in CreateAccountInput) (CreateAccountResult, error)

	// Earn credits the account. A repeated idempotency key is a no-op success with Applied=false.
	Earn(ctx context.Context, in EarnInput) (LedgerResult, error)

	// Spend debits the account, failing with CodeInsufficientBalance without side effects.
	Spend(ctx context.Context, in SpendInput) (LedgerResult, error)
}

type CreateAccountInput struct {
	OwnerID uuid.UUID
}

type CreateAccountResult struct {
	AccountID uuid.UUID
	OwnerID   uuid.UUID
	Created   bool
	Balance   decimal.Decimal
}

type EarnInput struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string
	Metadata       map[string]any
}

type SpendInput struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string
	Metadata       map[string]any
}

type LedgerResult struct {
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	// Applied is false when the idempotency key had already been recorded.
	Applied     bool
	Balance     decimal.Decimal
	TotalEarned decimal.Decimal
	RecordedAt  time.Time
}
