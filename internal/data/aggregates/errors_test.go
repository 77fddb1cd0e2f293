package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want domainagg.ErrorCode
	}{
		{"validation", ValidationError("bad input"), domainagg.CodeValidation},
		{"conflict", ConflictError("stale"), domainagg.CodeConflict},
		{"not found", gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{"deadline", context.DeadlineExceeded, domainagg.CodeRetryable},
		{"pg lock timeout", &pgconn.PgError{Code: "55P03"}, domainagg.CodeRetryable},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, domainagg.CodeRetryable},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg check", &pgconn.PgError{Code: "23514"}, domainagg.CodeInvariantViolation},
		{"pg numeric overflow", &pgconn.PgError{Code: "22003"}, domainagg.CodeInvalidAmount},
		{"sqlite unique", errors.New("UNIQUE constraint failed: ledger_transaction.idempotency_key"), domainagg.CodeConflict},
		{"sqlite check", errors.New("CHECK constraint failed: chk_ledger_account_balance"), domainagg.CodeInvariantViolation},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), domainagg.CodeRetryable},
		{"unknown", errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domainagg.CodeOf(MapError("op", tc.in)))
		})
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeFull, "op", "full", nil)
	assert.Same(t, in, MapError("other", in))

	wrapped := fmt.Errorf("outer: %w", in)
	assert.Equal(t, domainagg.CodeFull, domainagg.CodeOf(MapError("other", wrapped)))
}

func TestMapError_LockWaitWinsOverWrappedCause(t *testing.T) {
	err := errors.Join(RetryableError("lock wait exceeded"), context.DeadlineExceeded)
	assert.True(t, domainagg.IsRetryable(MapError("op", err)))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: reward_marker.scope, reward_marker.role")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, isUniqueViolation(nil))
}
