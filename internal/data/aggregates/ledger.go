package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/data/repos"
	types "github.com/yungbote/clubops-backend/internal/domain"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/domain/money"
	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

type LedgerAggregateDeps struct {
	Base BaseDeps

	Accounts     repos.AccountRepo
	Transactions repos.TransactionRepo
}

// LedgerWriter applies ledger movements inside a transaction owned by another
// aggregate. Callers must already hold any lock that orders before the account.
type LedgerWriter interface {
	EnsureAccountInTx(dbc dbctx.Context, ownerID uuid.UUID) (*types.Account, error)
	EarnInTx(dbc dbctx.Context, in domainagg.EarnInput) (domainagg.LedgerResult, error)
}

type ledgerAggregate struct {
	deps LedgerAggregateDeps
}

func NewLedgerAggregate(deps LedgerAggregateDeps) domainagg.LedgerAggregate {
	return newLedgerAggregate(deps)
}

func NewLedgerWriter(deps LedgerAggregateDeps) LedgerWriter {
	return newLedgerAggregate(deps)
}

func newLedgerAggregate(deps LedgerAggregateDeps) *ledgerAggregate {
	deps.Base = deps.Base.withDefaults()
	return &ledgerAggregate{deps: deps}
}

func (a *ledgerAggregate) Contract() domainagg.Contract {
	return domainagg.LedgerAggregateContract
}

func (a *ledgerAggregate) CreateAccount(ctx context.Context, in domainagg.CreateAccountInput) (domainagg.CreateAccountResult, error) {
	const op = "Points.Ledger.CreateAccount"
	var out domainagg.CreateAccountResult
	if in.OwnerID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing owner_id", nil)
	}
	if a.deps.Accounts == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "ledger aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		now := a.deps.Base.Now()
		acct, created, err := a.deps.Accounts.CreateIfAbsent(dbc, &types.Account{
			ID:          uuid.New(),
			OwnerID:     in.OwnerID,
			Balance:     money.Zero(),
			TotalEarned: money.Zero(),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}
		if acct == nil {
			return InvariantError("account upsert returned no row")
		}
		out = domainagg.CreateAccountResult{
			AccountID: acct.ID,
			OwnerID:   acct.OwnerID,
			Created:   created,
			Balance:   acct.Balance.Decimal,
		}
		return nil
	})
	return out, err
}

func (a *ledgerAggregate) Earn(ctx context.Context, in domainagg.EarnInput) (domainagg.LedgerResult, error) {
	const op = "Points.Ledger.Earn"
	return a.write(ctx, op, types.TransactionTypeEarn, in.AccountID, in.Amount, in.Reason, in.IdempotencyKey, in.Metadata)
}

func (a *ledgerAggregate) Spend(ctx context.Context, in domainagg.SpendInput) (domainagg.LedgerResult, error) {
	const op = "Points.Ledger.Spend"
	return a.write(ctx, op, types.TransactionTypeSpend, in.AccountID, in.Amount, in.Reason, in.IdempotencyKey, in.Metadata)
}

func (a *ledgerAggregate) write(ctx context.Context, op, txType string, accountID uuid.UUID, amount decimal.Decimal, reason, key string, metadata map[string]any) (domainagg.LedgerResult, error) {
	var out domainagg.LedgerResult
	if err := validateMovement(op, accountID, amount); err != nil {
		return out, err
	}
	if a.deps.Accounts == nil || a.deps.Transactions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "ledger aggregate repos not configured", nil)
	}
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "metadata must be JSON-encodable", err)
	}

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		res, err := a.apply(dbc, op, txType, accountID, amount, reason, key, meta)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil || !out.Applied {
		return out, err
	}

	a.deps.Base.Hooks.AddPoints(txType, amount.InexactFloat64())
	publishAfterCommit(ctx, a.deps.Base, op, []events.Event{ledgerEvent(txType, out, amount, reason)})
	return out, nil
}

func (a *ledgerAggregate) EnsureAccountInTx(dbc dbctx.Context, ownerID uuid.UUID) (*types.Account, error) {
	if ownerID == uuid.Nil {
		return nil, ValidationError("missing owner_id")
	}
	if dbc.Tx == nil {
		return nil, ValidationError("ledger writer requires a transaction")
	}
	now := a.deps.Base.Now()
	acct, _, err := a.deps.Accounts.CreateIfAbsent(dbc, &types.Account{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Balance:     money.Zero(),
		TotalEarned: money.Zero(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, InvariantError("account upsert returned no row")
	}
	return acct, nil
}

// EarnInTx runs the earn algorithm in the caller's transaction. Metrics and
// events are the owning operation's job once it commits.
func (a *ledgerAggregate) EarnInTx(dbc dbctx.Context, in domainagg.EarnInput) (domainagg.LedgerResult, error) {
	const op = "Points.Ledger.EarnInTx"
	if dbc.Tx == nil {
		return domainagg.LedgerResult{}, ValidationError("ledger writer requires a transaction")
	}
	if err := validateMovement(op, in.AccountID, in.Amount); err != nil {
		return domainagg.LedgerResult{}, err
	}
	meta, err := encodeMetadata(in.Metadata)
	if err != nil {
		return domainagg.LedgerResult{}, domainagg.NewError(domainagg.CodeValidation, op, "metadata must be JSON-encodable", err)
	}
	return a.apply(dbc, op, types.TransactionTypeEarn, in.AccountID, in.Amount, in.Reason, in.IdempotencyKey, meta)
}

// apply is lock -> dedupe -> validate -> append -> update, all on one account row.
func (a *ledgerAggregate) apply(dbc dbctx.Context, op, txType string, accountID uuid.UUID, amount decimal.Decimal, reason, key string, meta datatypes.JSON) (domainagg.LedgerResult, error) {
	var out domainagg.LedgerResult
	key = strings.TrimSpace(key)

	acct, err := a.deps.Accounts.LockByID(dbc, accountID)
	if err != nil {
		return out, err
	}
	if acct == nil {
		return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("account not found: %s", accountID), nil)
	}

	if key != "" {
		prior, err := a.deps.Transactions.GetByIdempotencyKey(dbc, key)
		if err != nil {
			return out, err
		}
		if prior != nil {
			return duplicateResult(op, acct, prior, txType)
		}
	}

	balance := acct.Balance.Decimal
	total := acct.TotalEarned.Decimal
	switch txType {
	case types.TransactionTypeEarn:
		balance = balance.Add(amount)
		total = total.Add(amount)
		if !money.Fits(balance) || !money.Fits(total) {
			return out, domainagg.NewError(domainagg.CodeInvalidAmount, op,
				fmt.Sprintf("earning %s would take the account past %s", amount.String(), money.Limit.String()), nil)
		}
	case types.TransactionTypeSpend:
		if balance.LessThan(amount) {
			return out, domainagg.NewError(domainagg.CodeInsufficientBalance, op,
				fmt.Sprintf("balance %s is less than %s", balance.String(), amount.String()), nil)
		}
		balance = balance.Sub(amount)
	default:
		return out, InvariantError(fmt.Sprintf("unknown transaction type %q", txType))
	}

	now := a.deps.Base.Now()
	row := &types.Transaction{
		ID:           uuid.New(),
		AccountID:    acct.ID,
		Type:         txType,
		Amount:       money.New(amount),
		Reason:       strings.TrimSpace(reason),
		BalanceAfter: money.New(balance),
		Metadata:     meta,
		CreatedAt:    now,
	}
	if key == "" {
		if err := a.deps.Transactions.Create(dbc, row); err != nil {
			return out, err
		}
	} else {
		row.IdempotencyKey = &key
		reserved, err := a.deps.Base.Guard.Reserve(dbc, "ledger_tx", func(tx *gorm.DB) error {
			return a.deps.Transactions.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, row)
		})
		if err != nil {
			return out, err
		}
		if !reserved {
			// Another account's transaction took the key after our check.
			prior, err := a.deps.Transactions.GetByIdempotencyKey(dbc, key)
			if err != nil {
				return out, err
			}
			if prior == nil {
				return out, RetryableError("idempotency key reserved by an uncommitted transaction")
			}
			return duplicateResult(op, acct, prior, txType)
		}
	}

	if err := a.deps.Accounts.UpdateBalances(dbc, acct.ID, balance, total, now); err != nil {
		return out, err
	}

	return domainagg.LedgerResult{
		AccountID:     acct.ID,
		TransactionID: row.ID,
		Applied:       true,
		Balance:       balance,
		TotalEarned:   total,
		RecordedAt:    now,
	}, nil
}

func duplicateResult(op string, acct *types.Account, prior *types.Transaction, txType string) (domainagg.LedgerResult, error) {
	if prior.AccountID != acct.ID {
		return domainagg.LedgerResult{}, domainagg.NewError(domainagg.CodeConflict, op, "idempotency key already used by another account", nil)
	}
	if prior.Type != txType {
		return domainagg.LedgerResult{}, domainagg.NewError(domainagg.CodeConflict, op,
			fmt.Sprintf("idempotency key already used by a %s transaction", prior.Type), nil)
	}
	return domainagg.LedgerResult{
		AccountID:     acct.ID,
		TransactionID: prior.ID,
		Applied:       false,
		Balance:       acct.Balance.Decimal,
		TotalEarned:   acct.TotalEarned.Decimal,
		RecordedAt:    prior.CreatedAt,
	}, nil
}

func validateMovement(op string, accountID uuid.UUID, amount decimal.Decimal) error {
	if accountID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing account_id", nil)
	}
	if !amount.IsPositive() {
		return domainagg.NewError(domainagg.CodeInvalidAmount, op, "amount must be positive", nil)
	}
	if !amount.Equal(amount.Truncate(money.Scale)) {
		return domainagg.NewError(domainagg.CodeInvalidAmount, op, fmt.Sprintf("amount has more than %d decimal places", money.Scale), nil)
	}
	if !amount.LessThan(money.Limit) {
		return domainagg.NewError(domainagg.CodeInvalidAmount, op, fmt.Sprintf("amount must be below %s", money.Limit.String()), nil)
	}
	return nil
}

func encodeMetadata(m map[string]any) (datatypes.JSON, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func ledgerEvent(txType string, res domainagg.LedgerResult, amount decimal.Decimal, reason string) events.Event {
	evtType := events.TypeLedgerEarned
	if txType == types.TransactionTypeSpend {
		evtType = events.TypeLedgerSpent
	}
	return events.New(evtType, res.AccountID.String(), res.TransactionID.String(), res.RecordedAt, map[string]any{
		"transaction_id": res.TransactionID.String(),
		"amount":         amount.String(),
		"balance":        res.Balance.String(),
		"reason":         reason,
	})
}
