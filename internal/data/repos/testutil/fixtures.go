package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/clubops-backend/internal/domain"
	"github.com/yungbote/clubops-backend/internal/domain/money"
)

func SeedAccount(tb testing.TB, ctx context.Context, tx *gorm.DB, balance decimal.Decimal) *types.Account {
	tb.Helper()
	a := &types.Account{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Balance:     money.New(balance),
		TotalEarned: money.New(balance),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed account: %v", err)
	}
	return a
}

func SeedCode(tb testing.TB, ctx context.Context, tx *gorm.DB, code string, grant decimal.Decimal) *types.RedemptionCode {
	tb.Helper()
	c := &types.RedemptionCode{
		Code:        code,
		ResourceID:  uuid.New(),
		GrantAmount: money.New(grant),
		Valid:       true,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed redemption code: %v", err)
	}
	return c
}

func SeedSubject(tb testing.TB, ctx context.Context, tx *gorm.DB, capacity int) *types.AllocationSubject {
	tb.Helper()
	s := &types.AllocationSubject{
		ID:       uuid.New(),
		Title:    "study group",
		Capacity: capacity,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed subject: %v", err)
	}
	return s
}

func SeedApplication(tb testing.TB, ctx context.Context, tx *gorm.DB, subjectID, actorID uuid.UUID, status string) *types.AllocationApplication {
	tb.Helper()
	a := &types.AllocationApplication{
		ID:        uuid.New(),
		SubjectID: subjectID,
		ActorID:   actorID,
		Note:      "hello",
		Status:    status,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed application: %v", err)
	}
	return a
}

func Ptr[T any](v T) *T { return &v }
