package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var AllocationAggregateContract = Contract{
	Name:             "Enrollment.AllocationAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	LockedRoot:       "allocation_subject",
	Notes: "Owns the check-and-increment of allocation counts together with membership and application " +
		"state; applications are part of their subject's lock scope.",
}

// AllocationAggregate owns capacity-bounded enrollment invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeAlreadyEnrolled, CodeAlreadyApplied, CodeFull, CodeConflict, CodeRetryable, CodeInternal.
type AllocationAggregate interface {
	Aggregate

	CreateSubject(ctx context.Context, in CreateSubjectInput) (SubjectResult, error)

	// AllocateImmediate consumes one slot for the actor or fails with CodeFull.
	AllocateImmediate(ctx context.Context, in AllocateInput) (AllocationResult, error)

	// Apply records a PENDING application without consuming capacity.
	Apply(ctx context.Context, in ApplyInput) (ApplicationResult, error)

	// UpdateApplication edits a PENDING application's note.
	UpdateApplication(ctx context.Context, in UpdateApplicationInput) (ApplicationResult, error)

	// Approve transitions PENDING -> APPROVED and consumes one slot.
	Approve(ctx context.Context, in DecideApplicationInput) (ApplicationResult, error)

	// Reject transitions PENDING -> REJECTED.
	Reject(ctx context.Context, in DecideApplicationInput) (ApplicationResult, error)
}

type CreateSubjectInput struct {
	Title    string
	Capacity int
}

type SubjectResult struct {
	SubjectID uuid.UUID
	Title     string
	Capacity  int
	Count     int
}

type AllocateInput struct {
	SubjectID uuid.UUID
	ActorID   uuid.UUID
}

type AllocationResult struct {
	SubjectID    uuid.UUID
	ActorID      uuid.UUID
	MembershipID uuid.UUID
	Count        int
	Capacity     int
	AllocatedAt  time.Time
}

type ApplyInput struct {
	SubjectID uuid.UUID
	ActorID   uuid.UUID
	Note      string
}

type UpdateApplicationInput struct {
	ApplicationID uuid.UUID
	Note          string
}

type DecideApplicationInput struct {
	ApplicationID uuid.UUID
}

type ApplicationResult struct {
	ApplicationID uuid.UUID
	SubjectID     uuid.UUID
	ActorID       uuid.UUID
	Status        string
	Note          string
	MembershipID  *uuid.UUID
	Count         int
	Capacity      int
	UpdatedAt     time.Time
}
