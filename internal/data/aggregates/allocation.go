package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/data/repos"
	types "github.com/yungbote/clubops-backend/internal/domain"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
)

type AllocationAggregateDeps struct {
	Base BaseDeps

	Subjects     repos.AllocationSubjectRepo
	Memberships  repos.AllocationMembershipRepo
	Applications repos.AllocationApplicationRepo
}

type allocationAggregate struct {
	deps AllocationAggregateDeps
}

func NewAllocationAggregate(deps AllocationAggregateDeps) domainagg.AllocationAggregate {
	deps.Base = deps.Base.withDefaults()
	return &allocationAggregate{deps: deps}
}

func (a *allocationAggregate) Contract() domainagg.Contract {
	return domainagg.AllocationAggregateContract
}

func (a *allocationAggregate) configured() bool {
	return a.deps.Subjects != nil && a.deps.Memberships != nil && a.deps.Applications != nil
}

func (a *allocationAggregate) CreateSubject(ctx context.Context, in domainagg.CreateSubjectInput) (domainagg.SubjectResult, error) {
	const op = "Enrollment.Allocation.CreateSubject"
	var out domainagg.SubjectResult
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing title", nil)
	}
	if in.Capacity < 1 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "capacity must be at least 1", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "allocation aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		now := a.deps.Base.Now()
		row := &types.AllocationSubject{
			ID:        uuid.New(),
			Title:     title,
			Capacity:  in.Capacity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := a.deps.Subjects.Create(dbc, row); err != nil {
			return err
		}
		out = domainagg.SubjectResult{
			SubjectID: row.ID,
			Title:     row.Title,
			Capacity:  row.Capacity,
			Count:     0,
		}
		return nil
	})
	return out, err
}

func (a *allocationAggregate) AllocateImmediate(ctx context.Context, in domainagg.AllocateInput) (domainagg.AllocationResult, error) {
	const op = "Enrollment.Allocation.AllocateImmediate"
	var out domainagg.AllocationResult
	if in.SubjectID == uuid.Nil || in.ActorID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing subject_id or actor_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "allocation aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		subject, err := a.lockSubject(dbc, op, in.SubjectID)
		if err != nil {
			return err
		}
		now := a.deps.Base.Now()
		m, err := a.consumeSlot(dbc, op, subject, in.ActorID, types.MembershipSourceImmediate, nil, now)
		if err != nil {
			return err
		}
		out = domainagg.AllocationResult{
			SubjectID:    subject.ID,
			ActorID:      in.ActorID,
			MembershipID: m.ID,
			Count:        subject.Count,
			Capacity:     subject.Capacity,
			AllocatedAt:  now,
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	publishAfterCommit(ctx, a.deps.Base, op, []events.Event{
		enrolledEvent(out.SubjectID, out.ActorID, out.MembershipID, types.MembershipSourceImmediate, out.Count, out.AllocatedAt),
	})
	return out, nil
}

func (a *allocationAggregate) Apply(ctx context.Context, in domainagg.ApplyInput) (domainagg.ApplicationResult, error) {
	const op = "Enrollment.Allocation.Apply"
	var out domainagg.ApplicationResult
	if in.SubjectID == uuid.Nil || in.ActorID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing subject_id or actor_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "allocation aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		subject, err := a.lockSubject(dbc, op, in.SubjectID)
		if err != nil {
			return err
		}
		if err := a.requireNotEnrolled(dbc, op, subject.ID, in.ActorID); err != nil {
			return err
		}
		pending, err := a.deps.Applications.GetPendingBySubjectActor(dbc, subject.ID, in.ActorID)
		if err != nil {
			return err
		}
		if pending != nil {
			return domainagg.NewError(domainagg.CodeAlreadyApplied, op, "a pending application already exists", nil)
		}

		now := a.deps.Base.Now()
		row := &types.AllocationApplication{
			ID:        uuid.New(),
			SubjectID: subject.ID,
			ActorID:   in.ActorID,
			Note:      strings.TrimSpace(in.Note),
			Status:    types.ApplicationStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		// The partial unique index backs the pending check if the lock is bypassed.
		reserved, err := a.deps.Base.Guard.Reserve(dbc, "allocation_application", func(tx *gorm.DB) error {
			return a.deps.Applications.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, row)
		})
		if err != nil {
			return err
		}
		if !reserved {
			return domainagg.NewError(domainagg.CodeAlreadyApplied, op, "a pending application already exists", nil)
		}
		out = applicationResult(row, subject)
		return nil
	})
	return out, err
}

func (a *allocationAggregate) UpdateApplication(ctx context.Context, in domainagg.UpdateApplicationInput) (domainagg.ApplicationResult, error) {
	const op = "Enrollment.Allocation.UpdateApplication"
	var out domainagg.ApplicationResult
	if in.ApplicationID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing application_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "allocation aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		app, subject, err := a.lockApplication(dbc, op, in.ApplicationID)
		if err != nil {
			return err
		}
		if err := RequireTransition(op, app.Status, types.ApplicationStatusPending); err != nil {
			return err
		}
		now := a.deps.Base.Now()
		note := strings.TrimSpace(in.Note)
		n, err := a.deps.Applications.UpdateNote(dbc, app.ID, note, now)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(n > 0, "application left PENDING while updating"); err != nil {
			return err
		}
		app.Note = note
		app.UpdatedAt = now
		out = applicationResult(app, subject)
		return nil
	})
	return out, err
}

func (a *allocationAggregate) Approve(ctx context.Context, in domainagg.DecideApplicationInput) (domainagg.ApplicationResult, error) {
	const op = "Enrollment.Allocation.Approve"
	var out domainagg.ApplicationResult
	if in.ApplicationID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing application_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "allocation aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		app, subject, err := a.lockApplication(dbc, op, in.ApplicationID)
		if err != nil {
			return err
		}
		if err := RequireTransition(op, app.Status, types.ApplicationStatusApproved); err != nil {
			return err
		}
		now := a.deps.Base.Now()
		m, err := a.consumeSlot(dbc, op, subject, app.ActorID, types.MembershipSourceApplication, &app.ID, now)
		if err != nil {
			return err
		}
		if err := a.transition(dbc, op, app, types.ApplicationStatusApproved, &m.ID, now); err != nil {
			return err
		}
		out = applicationResult(app, subject)
		return nil
	})
	if err != nil {
		return out, err
	}

	publishAfterCommit(ctx, a.deps.Base, op, []events.Event{
		enrolledEvent(out.SubjectID, out.ActorID, *out.MembershipID, types.MembershipSourceApplication, out.Count, out.UpdatedAt),
		decidedEvent(out),
	})
	return out, nil
}

func (a *allocationAggregate) Reject(ctx context.Context, in domainagg.DecideApplicationInput) (domainagg.ApplicationResult, error) {
	const op = "Enrollment.Allocation.Reject"
	var out domainagg.ApplicationResult
	if in.ApplicationID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing application_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "allocation aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		app, subject, err := a.lockApplication(dbc, op, in.ApplicationID)
		if err != nil {
			return err
		}
		if err := a.transition(dbc, op, app, types.ApplicationStatusRejected, nil, a.deps.Base.Now()); err != nil {
			return err
		}
		out = applicationResult(app, subject)
		return nil
	})
	if err != nil {
		return out, err
	}

	publishAfterCommit(ctx, a.deps.Base, op, []events.Event{decidedEvent(out)})
	return out, nil
}

func (a *allocationAggregate) lockSubject(dbc dbctx.Context, op string, id uuid.UUID) (*types.AllocationSubject, error) {
	subject, err := a.deps.Subjects.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("subject not found: %s", id), nil)
	}
	return subject, nil
}

// lockApplication locks the owning subject, then re-reads the application
// under that lock.
func (a *allocationAggregate) lockApplication(dbc dbctx.Context, op string, id uuid.UUID) (*types.AllocationApplication, *types.AllocationSubject, error) {
	app, err := a.deps.Applications.GetByID(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	if app == nil {
		return nil, nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("application not found: %s", id), nil)
	}
	subject, err := a.lockSubject(dbc, op, app.SubjectID)
	if err != nil {
		return nil, nil, err
	}
	app, err = a.deps.Applications.GetByID(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	if app == nil {
		return nil, nil, InvariantError("application vanished under subject lock")
	}
	return app, subject, nil
}

func (a *allocationAggregate) requireNotEnrolled(dbc dbctx.Context, op string, subjectID, actorID uuid.UUID) error {
	existing, err := a.deps.Memberships.GetBySubjectActor(dbc, subjectID, actorID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domainagg.NewError(domainagg.CodeAlreadyEnrolled, op, "actor already holds a slot", nil)
	}
	return nil
}

// consumeSlot is the check-and-increment critical section. The caller holds
// the subject lock; subject.Count is advanced in place on success.
func (a *allocationAggregate) consumeSlot(dbc dbctx.Context, op string, subject *types.AllocationSubject, actorID uuid.UUID, source string, applicationID *uuid.UUID, now time.Time) (*types.AllocationMembership, error) {
	if err := a.requireNotEnrolled(dbc, op, subject.ID, actorID); err != nil {
		return nil, err
	}
	if subject.Full() {
		return nil, domainagg.NewError(domainagg.CodeFull, op,
			fmt.Sprintf("subject is full (%d/%d)", subject.Count, subject.Capacity), nil)
	}
	n, err := a.deps.Subjects.IncrementCount(dbc, subject.ID, now)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domainagg.NewError(domainagg.CodeFull, op, "subject is full", nil)
	}
	m := &types.AllocationMembership{
		ID:            uuid.New(),
		SubjectID:     subject.ID,
		ActorID:       actorID,
		Source:        source,
		ApplicationID: applicationID,
		CreatedAt:     now,
	}
	if err := a.deps.Memberships.Create(dbc, m); err != nil {
		return nil, err
	}
	subject.Count++
	subject.UpdatedAt = now
	return m, nil
}

func (a *allocationAggregate) transition(dbc dbctx.Context, op string, app *types.AllocationApplication, status string, membershipID *uuid.UUID, now time.Time) error {
	updates := map[string]any{
		"decided_at": now,
		"updated_at": now,
	}
	if membershipID != nil {
		updates["membership_id"] = *membershipID
	}
	if err := a.deps.Base.CASGuard.Transition(dbc, op, app.TableName(), app.ID, app.Status, status, updates); err != nil {
		return err
	}
	app.Status = status
	app.MembershipID = membershipID
	app.DecidedAt = &now
	app.UpdatedAt = now
	return nil
}

func applicationResult(app *types.AllocationApplication, subject *types.AllocationSubject) domainagg.ApplicationResult {
	return domainagg.ApplicationResult{
		ApplicationID: app.ID,
		SubjectID:     app.SubjectID,
		ActorID:       app.ActorID,
		Status:        app.Status,
		Note:          app.Note,
		MembershipID:  app.MembershipID,
		Count:         subject.Count,
		Capacity:      subject.Capacity,
		UpdatedAt:     app.UpdatedAt,
	}
}

func enrolledEvent(subjectID, actorID, membershipID uuid.UUID, source string, count int, at time.Time) events.Event {
	return events.New(events.TypeAllocationEnrolled, subjectID.String(), membershipID.String(), at, map[string]any{
		"membership_id": membershipID.String(),
		"actor_id":      actorID.String(),
		"source":        source,
		"count":         count,
	})
}

func decidedEvent(res domainagg.ApplicationResult) events.Event {
	return events.New(events.TypeApplicationDecided, res.SubjectID.String(), res.ApplicationID.String(), res.UpdatedAt, map[string]any{
		"application_id": res.ApplicationID.String(),
		"actor_id":       res.ActorID.String(),
		"status":         res.Status,
	})
}
