package redemption

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clubops-backend/internal/domain/money"
)

// Code is a single-use redemption token. Valid flips to false exactly once,
// at redemption; a redeemed code is never deleted.
type Code struct {
	Code       string    `gorm:"primaryKey;size:32" json:"code"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;index" json:"resource_id"`

	GrantAmount money.Decimal `gorm:"not null;default:0" json:"grant_amount"`

	Valid      bool       `gorm:"not null;default:true;index" json:"valid"`
	RedeemedBy *uuid.UUID `gorm:"type:uuid;index" json:"redeemed_by,omitempty"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`

	IssuedBy  *uuid.UUID `gorm:"type:uuid" json:"issued_by,omitempty"`
	CreatedAt time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Code) TableName() string { return "redemption_code" }

func (c Code) Used() bool { return !c.Valid }
