package aggregates

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/data/repos"
	types "github.com/yungbote/clubops-backend/internal/domain"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/domain/money"
	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

const (
	CodeLength             = 8
	CodeAlphabet           = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultMaxCodeAttempts = 100

	GrantKindPoints = "points"
	GrantKindNone   = "none"
)

// Granter issues the benefit attached to a code. It runs inside the redeem
// transaction, after the code row is locked and flipped.
type Granter interface {
	Grant(dbc dbctx.Context, code *types.RedemptionCode, redeemerID uuid.UUID) (domainagg.GrantReceipt, error)
}

// LedgerGranter credits GrantAmount to the redeemer's point account.
type LedgerGranter struct {
	Ledger LedgerWriter
}

func (g LedgerGranter) Grant(dbc dbctx.Context, code *types.RedemptionCode, redeemerID uuid.UUID) (domainagg.GrantReceipt, error) {
	if code == nil || !code.GrantAmount.IsPositive() {
		return domainagg.GrantReceipt{Kind: GrantKindNone}, nil
	}
	if g.Ledger == nil {
		return domainagg.GrantReceipt{}, InvariantError("ledger granter has no ledger")
	}
	acct, err := g.Ledger.EnsureAccountInTx(dbc, redeemerID)
	if err != nil {
		return domainagg.GrantReceipt{}, err
	}
	res, err := g.Ledger.EarnInTx(dbc, domainagg.EarnInput{
		AccountID:      acct.ID,
		Amount:         code.GrantAmount.Decimal,
		Reason:         "code redemption",
		IdempotencyKey: RedeemIdempotencyKey(code.Code),
		Metadata: map[string]any{
			"code":        code.Code,
			"resource_id": code.ResourceID.String(),
		},
	})
	if err != nil {
		return domainagg.GrantReceipt{}, err
	}
	if !res.Applied {
		return domainagg.GrantReceipt{}, InvariantError("redemption grant already recorded for an unused code")
	}
	return domainagg.GrantReceipt{
		Kind:          GrantKindPoints,
		AccountID:     res.AccountID,
		TransactionID: res.TransactionID,
		Amount:        code.GrantAmount.Decimal,
		Balance:       res.Balance,
	}, nil
}

func RedeemIdempotencyKey(code string) string {
	return "redeem:" + code
}

type RedemptionAggregateDeps struct {
	Base BaseDeps

	Codes   repos.RedemptionCodeRepo
	Granter Granter

	// Generate returns a candidate code; defaults to GenerateCode.
	Generate    func() (string, error)
	MaxAttempts int
}

type redemptionAggregate struct {
	deps RedemptionAggregateDeps
}

func NewRedemptionAggregate(deps RedemptionAggregateDeps) domainagg.RedemptionAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Generate == nil {
		deps.Generate = GenerateCode
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = DefaultMaxCodeAttempts
	}
	return &redemptionAggregate{deps: deps}
}

func (a *redemptionAggregate) Contract() domainagg.Contract {
	return domainagg.RedemptionAggregateContract
}

func (a *redemptionAggregate) Issue(ctx context.Context, in domainagg.IssueCodeInput) (domainagg.IssueCodeResult, error) {
	const op = "Coupons.Redemption.Issue"
	var out domainagg.IssueCodeResult
	if in.ResourceID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing resource_id", nil)
	}
	if in.GrantAmount.IsNegative() {
		return out, domainagg.NewError(domainagg.CodeInvalidAmount, op, "grant amount must not be negative", nil)
	}
	if !money.Fits(in.GrantAmount) {
		return out, domainagg.NewError(domainagg.CodeInvalidAmount, op,
			fmt.Sprintf("grant amount must have at most %d decimal places and be below %s", money.Scale, money.Limit.String()), nil)
	}
	if a.deps.Codes == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "redemption aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		now := a.deps.Base.Now()
		for attempt := 1; attempt <= a.deps.MaxAttempts; attempt++ {
			code, err := a.deps.Generate()
			if err != nil {
				return err
			}
			row := &types.RedemptionCode{
				Code:        code,
				ResourceID:  in.ResourceID,
				GrantAmount: money.New(in.GrantAmount),
				Valid:       true,
				IssuedBy:    in.IssuedBy,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			reserved, err := a.deps.Base.Guard.Reserve(dbc, "redemption_code", func(tx *gorm.DB) error {
				return a.deps.Codes.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, row)
			})
			if err != nil {
				return err
			}
			if reserved {
				out = domainagg.IssueCodeResult{
					Code:       code,
					ResourceID: in.ResourceID,
					Attempts:   attempt,
					IssuedAt:   now,
				}
				return nil
			}
		}
		return domainagg.NewError(domainagg.CodeGenerationExhausted, op,
			fmt.Sprintf("no unique code after %d attempts", a.deps.MaxAttempts), nil)
	})
	return out, err
}

func (a *redemptionAggregate) Redeem(ctx context.Context, in domainagg.RedeemCodeInput) (domainagg.RedeemCodeResult, error) {
	const op = "Coupons.Redemption.Redeem"
	var out domainagg.RedeemCodeResult
	code := NormalizeCode(in.Code)
	if code == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing code", nil)
	}
	if in.RedeemerID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing redeemer_id", nil)
	}
	if a.deps.Codes == nil || a.deps.Granter == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "redemption aggregate not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row, err := a.deps.Codes.LockByCode(dbc, code)
		if err != nil {
			return err
		}
		if row == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "code not found", nil)
		}
		if row.Used() {
			return domainagg.NewError(domainagg.CodeAlreadyUsed, op, "code already used", nil)
		}

		now := a.deps.Base.Now()
		n, err := a.deps.Codes.MarkRedeemed(dbc, code, in.RedeemerID, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return domainagg.NewError(domainagg.CodeAlreadyUsed, op, "code already used", nil)
		}

		receipt, err := a.deps.Granter.Grant(dbc, row, in.RedeemerID)
		if err != nil {
			return err
		}
		out = domainagg.RedeemCodeResult{
			Code:       code,
			RedeemerID: in.RedeemerID,
			ResourceID: row.ResourceID,
			RedeemedAt: now,
			Grant:      receipt,
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	evts := []events.Event{
		events.New(events.TypeCodeRedeemed, out.ResourceID.String(), out.Code, out.RedeemedAt, map[string]any{
			"code":        out.Code,
			"redeemer_id": out.RedeemerID.String(),
			"grant_kind":  out.Grant.Kind,
		}),
	}
	if out.Grant.Kind == GrantKindPoints {
		a.deps.Base.Hooks.AddPoints(types.TransactionTypeEarn, out.Grant.Amount.InexactFloat64())
		evts = append(evts, ledgerEvent(types.TransactionTypeEarn, domainagg.LedgerResult{
			AccountID:     out.Grant.AccountID,
			TransactionID: out.Grant.TransactionID,
			Balance:       out.Grant.Balance,
			RecordedAt:    out.RedeemedAt,
		}, out.Grant.Amount, "code redemption"))
	}
	publishAfterCommit(ctx, a.deps.Base, op, evts)
	return out, nil
}

func (a *redemptionAggregate) Revoke(ctx context.Context, in domainagg.RevokeCodeInput) (domainagg.RevokeCodeResult, error) {
	const op = "Coupons.Redemption.Revoke"
	var out domainagg.RevokeCodeResult
	code := NormalizeCode(in.Code)
	if code == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing code", nil)
	}
	if a.deps.Codes == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "redemption aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row, err := a.deps.Codes.LockByCode(dbc, code)
		if err != nil {
			return err
		}
		if row == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "code not found", nil)
		}
		if row.Used() {
			return domainagg.NewError(domainagg.CodeConflict, op, "redeemed codes cannot be revoked", nil)
		}
		n, err := a.deps.Codes.DeleteUnused(dbc, code)
		if err != nil {
			return err
		}
		if n == 0 {
			return ConflictError("code changed while revoking")
		}
		out = domainagg.RevokeCodeResult{Code: code, RevokedAt: a.deps.Base.Now()}
		return nil
	})
	return out, err
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateCode returns CodeLength characters drawn uniformly from CodeAlphabet.
func GenerateCode() (string, error) {
	const limit = 256 - 256%len(CodeAlphabet)
	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)
	for len(out) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, CodeAlphabet[int(b)%len(CodeAlphabet)])
			if len(out) == CodeLength {
				break
			}
		}
	}
	return string(out), nil
}
