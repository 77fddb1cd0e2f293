package aggregates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/data/repos"
	types "github.com/yungbote/clubops-backend/internal/domain"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/domain/money"
	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

type RewardAggregateDeps struct {
	Base BaseDeps

	Markers repos.RewardMarkerRepo
	Ledger  LedgerWriter
}

type rewardAggregate struct {
	deps RewardAggregateDeps
}

func NewRewardAggregate(deps RewardAggregateDeps) domainagg.RewardAggregate {
	deps.Base = deps.Base.withDefaults()
	return &rewardAggregate{deps: deps}
}

func (a *rewardAggregate) Contract() domainagg.Contract {
	return domainagg.RewardAggregateContract
}

// Fire writes each grant in its own transaction, so one recipient's account
// lock is never held while another's is taken. A failed grant stops the loop;
// results for the grants already written are returned with the error.
func (a *rewardAggregate) Fire(ctx context.Context, in domainagg.FireRewardInput) (domainagg.FireRewardResult, error) {
	const op = "Rewards.Trigger.Fire"
	scope := strings.TrimSpace(in.Scope)
	out := domainagg.FireRewardResult{Scope: scope}
	if scope == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing scope", nil)
	}
	if len(in.Grants) == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "no grants", nil)
	}
	if a.deps.Markers == nil || a.deps.Ledger == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "reward aggregate not configured", nil)
	}
	seen := make(map[string]struct{}, len(in.Grants))
	for i, g := range in.Grants {
		role := strings.TrimSpace(g.Role)
		if role == "" {
			return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("grant %d: missing role", i), nil)
		}
		if _, dup := seen[role]; dup {
			return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("grant %d: duplicate role %q", i, role), nil)
		}
		seen[role] = struct{}{}
		if g.RecipientID == uuid.Nil {
			return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("grant %d: missing recipient_id", i), nil)
		}
		if err := validateMovement(op, g.RecipientID, g.Amount); err != nil {
			return out, err
		}
	}
	payload, err := encodeMetadata(in.Metadata)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "metadata must be JSON-encodable", err)
	}

	for _, g := range in.Grants {
		g.Role = strings.TrimSpace(g.Role)
		res, earned, err := a.fireOne(ctx, op, scope, g, payload)
		if err != nil {
			return out, err
		}
		out.Results = append(out.Results, res)
		if res.Outcome != domainagg.RewardOutcomeRewarded {
			continue
		}
		a.deps.Base.Hooks.AddPoints(types.TransactionTypeEarn, g.Amount.InexactFloat64())
		publishAfterCommit(ctx, a.deps.Base, op, []events.Event{
			events.New(events.TypeRewardGranted, scope, g.Role, earned.RecordedAt, map[string]any{
				"role":           g.Role,
				"recipient_id":   g.RecipientID.String(),
				"amount":         g.Amount.String(),
				"transaction_id": earned.TransactionID.String(),
			}),
			ledgerEvent(types.TransactionTypeEarn, earned, g.Amount, g.Reason),
		})
	}
	return out, nil
}

func (a *rewardAggregate) fireOne(ctx context.Context, op, scope string, g domainagg.RewardGrant, payload datatypes.JSON) (domainagg.RewardGrantResult, domainagg.LedgerResult, error) {
	res := domainagg.RewardGrantResult{Role: g.Role, RecipientID: g.RecipientID, Outcome: domainagg.RewardOutcomeSkipped}
	var earned domainagg.LedgerResult

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		marker := &types.RewardMarker{
			ID:          uuid.New(),
			Scope:       scope,
			Role:        g.Role,
			RecipientID: g.RecipientID,
			Amount:      money.New(g.Amount),
			Payload:     payload,
			CreatedAt:   a.deps.Base.Now(),
		}
		reserved, err := a.deps.Base.Guard.Reserve(dbc, "reward_marker", func(tx *gorm.DB) error {
			return a.deps.Markers.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, marker)
		})
		if err != nil {
			return err
		}
		if !reserved {
			prior, err := a.deps.Markers.GetByScopeRole(dbc, scope, g.Role)
			if err != nil {
				return err
			}
			if prior == nil {
				return RetryableError("reward marker reserved by an uncommitted transaction")
			}
			if prior.TransactionID != nil {
				res.TransactionID = *prior.TransactionID
			}
			return nil
		}

		acct, err := a.deps.Ledger.EnsureAccountInTx(dbc, g.RecipientID)
		if err != nil {
			return err
		}
		reason := strings.TrimSpace(g.Reason)
		if reason == "" {
			reason = "reward: " + scope
		}
		lr, err := a.deps.Ledger.EarnInTx(dbc, domainagg.EarnInput{
			AccountID:      acct.ID,
			Amount:         g.Amount,
			Reason:         reason,
			IdempotencyKey: domainagg.RewardIdempotencyKey(scope, g.RecipientID),
			Metadata: map[string]any{
				"scope": scope,
				"role":  g.Role,
			},
		})
		if err != nil {
			return err
		}
		res.Balance = lr.Balance
		res.TransactionID = lr.TransactionID
		// A skipped marker points at the credit another role already made.
		if err := a.deps.Markers.SetTransaction(dbc, marker.ID, lr.TransactionID); err != nil {
			return err
		}
		if !lr.Applied {
			return nil
		}
		res.Outcome = domainagg.RewardOutcomeRewarded
		earned = lr
		return nil
	})
	if err != nil {
		return domainagg.RewardGrantResult{}, domainagg.LedgerResult{}, err
	}
	return res, earned, nil
}
