package allocation

import (
	"time"

	"github.com/google/uuid"
)

// Subject is a capacity-bounded resource (a study group, an event seat pool).
// Count only grows and never exceeds Capacity.
type Subject struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title    string    `gorm:"not null;default:''" json:"title"`
	Capacity int       `gorm:"not null;check:chk_allocation_subject_capacity,capacity >= 0" json:"capacity"`
	Count    int       `gorm:"column:allocated_count;not null;default:0;check:chk_allocation_subject_count,allocated_count <= capacity" json:"count"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Subject) TableName() string { return "allocation_subject" }

func (s Subject) Full() bool { return s.Count >= s.Capacity }

// immediate|application
const (
	MembershipSourceImmediate   = "immediate"
	MembershipSourceApplication = "application"
)

// Membership records one actor holding one slot of a subject.
type Membership struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_allocation_membership_subject_actor,unique,priority:1" json:"subject_id"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null;index:idx_allocation_membership_subject_actor,unique,priority:2;index" json:"actor_id"`
	Source    string    `gorm:"not null" json:"source"`

	ApplicationID *uuid.UUID `gorm:"type:uuid" json:"application_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Membership) TableName() string { return "allocation_membership" }
