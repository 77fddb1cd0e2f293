package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var RedemptionAggregateContract = Contract{
	Name:             "Coupons.RedemptionAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	LockedRoot:       "redemption_code",
	Notes: "Owns the VALID -> USED transition of single-use codes and the grant issued with it; " +
		"the grant locks the redeemer's account after the code row, never before.",
}

// RedemptionAggregate owns single-use code invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeAlreadyUsed, CodeConflict, CodeGenerationExhausted, CodeRetryable, CodeInternal.
type RedemptionAggregate interface {
	Aggregate

	// Issue generates and persists a fresh unique code for the resource.
	Issue(ctx context.Context, in IssueCodeInput) (IssueCodeResult, error)

	// Redeem flips a valid code to used and issues its grant in the same transaction.
	Redeem(ctx context.Context, in RedeemCodeInput) (RedeemCodeResult, error)

	// Revoke deletes a code that has not been redeemed.
	Revoke(ctx context.Context, in RevokeCodeInput) (RevokeCodeResult, error)
}

type IssueCodeInput struct {
	ResourceID  uuid.UUID
	GrantAmount decimal.Decimal
	IssuedBy    *uuid.UUID
}

type IssueCodeResult struct {
	Code       string
	ResourceID uuid.UUID
	Attempts   int
	IssuedAt   time.Time
}

type RedeemCodeInput struct {
	Code       string
	RedeemerID uuid.UUID
}

type RedeemCodeResult struct {
	Code       string
	RedeemerID uuid.UUID
	ResourceID uuid.UUID
	RedeemedAt time.Time
	Grant      GrantReceipt
}

// GrantReceipt describes the benefit issued for a redemption.
type GrantReceipt struct {
	Kind          string
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	Balance       decimal.Decimal
}

type RevokeCodeInput struct {
	Code string
}

type RevokeCodeResult struct {
	Code      string
	RevokedAt time.Time
}
