package aggregates

import (
	"fmt"
	"strings"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

var savepointSeq atomic.Uint64

// IdempotencyGuard turns a unique-constraint violation into a duplicate signal.
// The insert runs under a savepoint so a collision leaves the enclosing
// transaction usable (Postgres aborts the whole transaction otherwise).
type IdempotencyGuard struct{}

// Reserve runs insert inside dbc.Tx. It reports reserved=false, with no error,
// when the row already exists.
func (IdempotencyGuard) Reserve(dbc dbctx.Context, name string, insert func(tx *gorm.DB) error) (bool, error) {
	if dbc.Tx == nil {
		return false, ValidationError("idempotency guard requires a transaction")
	}
	if insert == nil {
		return false, ValidationError("idempotency guard requires an insert")
	}
	sp := savepointName(name)
	if err := dbc.Tx.SavePoint(sp).Error; err != nil {
		return false, err
	}
	err := insert(dbc.Tx)
	if err == nil {
		return true, nil
	}
	if rbErr := dbc.Tx.RollbackTo(sp).Error; rbErr != nil {
		return false, rbErr
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

func savepointName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= 32 {
			break
		}
	}
	return fmt.Sprintf("idem_%s_%d", b.String(), savepointSeq.Add(1))
}
