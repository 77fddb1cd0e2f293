package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

const (
	DefaultGrantConcurrency = 8
	MaxBatchGrantItems      = 1000
)

// GrantService fans admin grants out to the ledger. Every item is its own
// Earn with a key derived from the batch, so a resubmitted batch is a no-op.
type GrantService interface {
	Grant(ctx context.Context, in ManualGrantInput) (domainagg.LedgerResult, error)
	BatchGrant(ctx context.Context, in BatchGrantInput) (BatchGrantResult, error)
}

type ManualGrantInput struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string
	GrantedBy      *uuid.UUID
}

type BatchGrantItem struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

type BatchGrantInput struct {
	BatchID   string
	Reason    string
	Items     []BatchGrantItem
	GrantedBy *uuid.UUID
}

type BatchGrantItemResult struct {
	AccountID     uuid.UUID       `json:"account_id"`
	Applied       bool            `json:"applied"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Balance       decimal.Decimal `json:"balance"`
	ErrorCode     string          `json:"error_code,omitempty"`
	Error         string          `json:"error,omitempty"`
}

type BatchGrantResult struct {
	BatchID string                 `json:"batch_id"`
	Applied int                    `json:"applied"`
	Skipped int                    `json:"skipped"`
	Failed  int                    `json:"failed"`
	Items   []BatchGrantItemResult `json:"items"`
}

type grantService struct {
	log         *logger.Logger
	ledger      domainagg.LedgerAggregate
	concurrency int
}

func NewGrantService(log *logger.Logger, ledger domainagg.LedgerAggregate, concurrency int) GrantService {
	if concurrency <= 0 {
		concurrency = DefaultGrantConcurrency
	}
	return &grantService{
		log:         log.With("service", "GrantService"),
		ledger:      ledger,
		concurrency: concurrency,
	}
}

func BatchIdempotencyKey(batchID string, accountID uuid.UUID) string {
	return "batch:" + batchID + ":" + accountID.String()
}

func (s *grantService) Grant(ctx context.Context, in ManualGrantInput) (domainagg.LedgerResult, error) {
	return s.ledger.Earn(ctx, domainagg.EarnInput{
		AccountID:      in.AccountID,
		Amount:         in.Amount,
		Reason:         in.Reason,
		IdempotencyKey: in.IdempotencyKey,
		Metadata:       grantMetadata("manual", "", in.GrantedBy),
	})
}

// BatchGrant never fails as a whole once validated; per-item failures are
// reported in the result. Items naming the same account are rejected because
// they would share one idempotency key.
func (s *grantService) BatchGrant(ctx context.Context, in BatchGrantInput) (BatchGrantResult, error) {
	const op = "Grants.BatchGrant"
	batchID := strings.TrimSpace(in.BatchID)
	out := BatchGrantResult{BatchID: batchID}
	if batchID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing batch_id", nil)
	}
	if len(in.Items) == 0 || len(in.Items) > MaxBatchGrantItems {
		return out, domainagg.NewError(domainagg.CodeValidation, op,
			fmt.Sprintf("batch must have between 1 and %d items", MaxBatchGrantItems), nil)
	}
	seen := make(map[uuid.UUID]struct{}, len(in.Items))
	for i, it := range in.Items {
		if _, dup := seen[it.AccountID]; dup {
			return out, domainagg.NewError(domainagg.CodeValidation, op,
				fmt.Sprintf("item %d: account %s appears more than once", i, it.AccountID), nil)
		}
		seen[it.AccountID] = struct{}{}
	}

	out.Items = make([]BatchGrantItemResult, len(in.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, it := range in.Items {
		g.Go(func() error {
			res, err := s.ledger.Earn(gctx, domainagg.EarnInput{
				AccountID:      it.AccountID,
				Amount:         it.Amount,
				Reason:         in.Reason,
				IdempotencyKey: BatchIdempotencyKey(batchID, it.AccountID),
				Metadata:       grantMetadata("batch", batchID, in.GrantedBy),
			})
			item := BatchGrantItemResult{AccountID: it.AccountID}
			if err != nil {
				item.ErrorCode = string(domainagg.CodeOf(err))
				item.Error = err.Error()
			} else {
				item.Applied = res.Applied
				item.TransactionID = res.TransactionID
				item.Balance = res.Balance
			}
			out.Items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	for _, item := range out.Items {
		switch {
		case item.Error != "":
			out.Failed++
		case item.Applied:
			out.Applied++
		default:
			out.Skipped++
		}
	}
	if out.Failed > 0 {
		s.log.Warn("batch grant finished with failures", "batch_id", batchID, "failed", out.Failed, "items", len(out.Items))
	}
	return out, nil
}

func grantMetadata(kind, batchID string, grantedBy *uuid.UUID) map[string]any {
	meta := map[string]any{"grant": kind}
	if batchID != "" {
		meta["batch_id"] = batchID
	}
	if grantedBy != nil {
		meta["granted_by"] = grantedBy.String()
	}
	return meta
}
