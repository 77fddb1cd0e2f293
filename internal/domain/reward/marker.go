package reward

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/clubops-backend/internal/domain/money"
)

// Marker guarantees a reward for (Scope, Role) is granted at most once.
// Its existence is the record that the reward fired.
type Marker struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Scope string    `gorm:"not null;size:255;index:idx_reward_marker_scope_role,unique,priority:1" json:"scope"`
	Role  string    `gorm:"not null;size:64;index:idx_reward_marker_scope_role,unique,priority:2" json:"role"`

	RecipientID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Amount        money.Decimal  `gorm:"not null" json:"amount"`
	TransactionID *uuid.UUID     `gorm:"type:uuid" json:"transaction_id,omitempty"`
	Payload       datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Marker) TableName() string { return "reward_marker" }
