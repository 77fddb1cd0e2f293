package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/yungbote/clubops-backend/internal/domain/money"
)

// Account is the point balance aggregate root. Balance is mutated only while
// the row is locked, and always together with an appended Transaction.
type Account struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"owner_id"`

	// On SQLite the column is TEXT and the check compares strings; a
	// canonical non-negative decimal never sorts below '0'.
	Balance     money.Decimal `gorm:"not null;default:0;check:chk_ledger_account_balance,balance >= 0" json:"balance"`
	TotalEarned money.Decimal `gorm:"not null;default:0" json:"total_earned"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Account) TableName() string { return "ledger_account" }

// EARN|SPEND
const (
	TransactionTypeEarn  = "EARN"
	TransactionTypeSpend = "SPEND"
)

// Transaction is an immutable ledger entry. There is no update path.
type Transaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index:idx_ledger_tx_account_created,priority:1" json:"account_id"`

	Type   string        `gorm:"column:type;not null" json:"type"`
	Amount money.Decimal `gorm:"not null" json:"amount"`
	Reason string        `gorm:"not null;default:''" json:"reason"`

	// Unique when present; NULLs do not collide.
	IdempotencyKey *string `gorm:"uniqueIndex" json:"idempotency_key,omitempty"`

	BalanceAfter money.Decimal  `gorm:"not null" json:"balance_after"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_ledger_tx_account_created,priority:2" json:"created_at"`
}

func (Transaction) TableName() string { return "ledger_transaction" }

// Signed returns the amount with the sign it contributes to the balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionTypeSpend {
		return t.Amount.Neg()
	}
	return t.Amount.Decimal
}
