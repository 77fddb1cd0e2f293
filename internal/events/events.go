// Package events carries after-commit notifications out of the aggregate layer.
// Publishing happens outside the database transaction and never rolls it back;
// consumers dedupe on Event.ID.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeLedgerEarned       = "ledger.earned"
	TypeLedgerSpent        = "ledger.spent"
	TypeCodeRedeemed       = "code.redeemed"
	TypeAllocationEnrolled = "allocation.enrolled"
	TypeApplicationDecided = "application.decided"
	TypeRewardGranted      = "reward.granted"
)

type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     map[string]any `json:"payload,omitempty"`
}

var eventNamespace = uuid.MustParse("6f1c0f0e-9d1b-4c44-9a3e-3d3f1c2b7a10")

// New builds an event whose id is derived from (type, record id), so a
// re-published event carries the same id.
func New(eventType, aggregateID, recordID string, at time.Time, payload map[string]any) Event {
	return Event{
		ID:          uuid.NewSHA1(eventNamespace, []byte(eventType+"|"+recordID)).String(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  at.UTC(),
		Payload:     payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evts ...Event) error
	Close() error
}

type nopPublisher struct{}

// Nop discards every event.
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, ...Event) error { return nil }
func (nopPublisher) Close() error                          { return nil }

var (
	_ Publisher = nopPublisher{}
	_ Publisher = (*RedisStreamPublisher)(nil)
)
