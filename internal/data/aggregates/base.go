package aggregates

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/observability"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	Guard    IdempotencyGuard
	Events   events.Publisher
	Now      func() time.Time
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Events == nil {
		d.Events = events.Nop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	ctx, span := observability.StartSpan(ctx, op, attribute.String("aggregate.op", op))
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsStateConflict(mapped) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	span.SetAttributes(attribute.String("aggregate.status", status))
	observability.EndSpan(span, mapped)
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

// publishAfterCommit hands events to the publisher once the write has
// committed. Failures are logged and counted; the write stands.
func publishAfterCommit(ctx context.Context, deps BaseDeps, op string, evts []events.Event) {
	deps = deps.withDefaults()
	if len(evts) == 0 {
		return
	}
	result := "ok"
	if err := deps.Events.Publish(context.WithoutCancel(ctx), evts...); err != nil {
		result = "error"
		deps.Log.Warn("after-commit publish failed", "op", op, "events", len(evts), "error", err)
	}
	for _, evt := range evts {
		deps.Hooks.IncEventPublished(evt.Type, result)
	}
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
