package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/talladmin/internal/domain"
)

// TracingPublisher wraps a domain.EventPublisher with OpenTelemetry tracing.
type TracingPublisher struct {
	next   domain.EventPublisher
	tracer trace.Tracer
}

var _ domain.EventPublisher = (*TracingPublisher)(nil)

func NewTracingPublisher(next domain.EventPublisher) *TracingPublisher {
	return &TracingPublisher{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingPublisher) Publish(ctx context.Context, event domain.Event, tenant domain.Tenant) error {
	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish",
		trace.WithAttributes(
			attribute.String("event.type", string(event)),
			attribute.String("tenant.id", tenant.ID),
			attribute.String("tenant.domain", tenant.Domain),
		),
	)
	defer span.End()

	err := p.next.Publish(ctx, event, tenant)
	recordError(span, err)
	return err
}

// SideEffects is the set of lifecycle side-effect ports, typically one
// queue dispatcher.
type SideEffects interface {
	domain.Notifier
	domain.JobController
	domain.Archiver
}

// TracingSideEffects traces each best-effort side effect of a lifecycle
// transition as its own span.
type TracingSideEffects struct {
	next   SideEffects
	tracer trace.Tracer
}

var _ SideEffects = (*TracingSideEffects)(nil)

func NewTracingSideEffects(next SideEffects) *TracingSideEffects {
	return &TracingSideEffects{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (e *TracingSideEffects) Notify(ctx context.Context, n domain.Notification) error {
	ctx, span := e.tracer.Start(ctx, "SideEffect.Notify",
		trace.WithAttributes(
			attribute.String("tenant.id", n.TenantID),
			attribute.String("event.type", string(n.Event)),
		),
	)
	defer span.End()

	err := e.next.Notify(ctx, n)
	recordError(span, err)
	return err
}

func (e *TracingSideEffects) Pause(ctx context.Context, tenantID string) error {
	ctx, span := e.tracer.Start(ctx, "SideEffect.PauseJobs",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	err := e.next.Pause(ctx, tenantID)
	recordError(span, err)
	return err
}

func (e *TracingSideEffects) Resume(ctx context.Context, tenantID string) error {
	ctx, span := e.tracer.Start(ctx, "SideEffect.ResumeJobs",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	err := e.next.Resume(ctx, tenantID)
	recordError(span, err)
	return err
}

func (e *TracingSideEffects) Archive(ctx context.Context, tenant domain.Tenant, retainUntil time.Time) error {
	ctx, span := e.tracer.Start(ctx, "SideEffect.Archive",
		trace.WithAttributes(
			attribute.String("tenant.id", tenant.ID),
			attribute.String("archive.retain_until", retainUntil.UTC().Format(time.RFC3339)),
		),
	)
	defer span.End()

	err := e.next.Archive(ctx, tenant, retainUntil)
	recordError(span, err)
	return err
}
