package allocation

import (
	"time"

	"github.com/google/uuid"
)

const (
	ApplicationStatusPending  = "PENDING"
	ApplicationStatusApproved = "APPROVED"
	ApplicationStatusRejected = "REJECTED"
)

// Application is a deferred allocation request. Capacity is consumed only at
// the PENDING -> APPROVED transition.
type Application struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_allocation_application_subject_actor,priority:1" json:"subject_id"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null;index:idx_allocation_application_subject_actor,priority:2" json:"actor_id"`
	Note      string    `gorm:"not null;default:''" json:"note"`

	// PENDING|APPROVED|REJECTED
	Status string `gorm:"column:status;not null;index" json:"status"`

	MembershipID *uuid.UUID `gorm:"type:uuid" json:"membership_id,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Application) TableName() string { return "allocation_application" }

