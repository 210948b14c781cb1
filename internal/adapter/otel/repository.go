package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/talladmin/internal/domain"
)

const tracerName = "github.com/neomorfeo/talladmin/internal/adapter/otel"

// TracingRepository wraps a domain.TenantRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.TenantRepository
	tracer trace.Tracer
}

var _ domain.TenantRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.TenantRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, tenant domain.Tenant) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Create",
		trace.WithAttributes(
			attribute.String("tenant.id", tenant.ID),
			attribute.String("tenant.domain", tenant.Domain),
			attribute.String("tenant.plan", tenant.Plan),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, tenant)
	recordError(span, err)
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetByID",
		trace.WithAttributes(attribute.String("tenant.id", id)),
	)
	defer span.End()

	tenant, err := r.next.GetByID(ctx, id)
	recordError(span, err)
	return tenant, err
}

func (r *TracingRepository) GetByDomain(ctx context.Context, host string) (domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetByDomain",
		trace.WithAttributes(attribute.String("tenant.domain", host)),
	)
	defer span.End()

	tenant, err := r.next.GetByDomain(ctx, host)
	recordError(span, err)
	return tenant, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	tenants, err := r.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(tenants)))
	}
	return tenants, err
}

func (r *TracingRepository) SetStatus(ctx context.Context, id string, change domain.StatusChange) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.SetStatus",
		trace.WithAttributes(
			attribute.String("tenant.id", id),
			attribute.String("tenant.event", string(change.Event)),
			attribute.String("tenant.status.from", string(change.From)),
			attribute.String("tenant.status.to", string(change.To)),
		),
	)
	defer span.End()

	err := r.next.SetStatus(ctx, id, change)
	recordError(span, err)
	return err
}

func (r *TracingRepository) History(ctx context.Context, id string) ([]domain.StatusChange, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.History",
		trace.WithAttributes(attribute.String("tenant.id", id)),
	)
	defer span.End()

	changes, err := r.next.History(ctx, id)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(changes)))
	}
	return changes, err
}

func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
