package money

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Scale is the number of fractional digits a point amount may carry.
const Scale = 8

// Limit is the exclusive upper bound of a DECIMAL(20,8) column.
var Limit = decimal.New(1, 20-Scale)

// Decimal is a point amount column. Postgres keeps it in DECIMAL(20,8).
// SQLite would coerce any numeric-looking value into REAL, so there the
// canonical string is kept in a TEXT column instead.
type Decimal struct {
	decimal.Decimal
}

func New(d decimal.Decimal) Decimal { return Decimal{Decimal: d} }

func Zero() Decimal { return Decimal{Decimal: decimal.Zero} }

func (Decimal) GormDataType() string { return "decimal" }

func (Decimal) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "TEXT"
	default:
		return "DECIMAL(20,8)"
	}
}

// Fits reports whether d can be stored exactly: non-negative, at most Scale
// fractional digits, and below Limit.
func Fits(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Truncate(Scale)) && d.LessThan(Limit)
}
