package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/talladmin/internal/domain"
)

// TracingOTP wraps a domain.OTPService with OpenTelemetry tracing. The code
// itself is never put on a span.
type TracingOTP struct {
	next   domain.OTPService
	tracer trace.Tracer
}

var _ domain.OTPService = (*TracingOTP)(nil)

func NewTracingOTP(next domain.OTPService) *TracingOTP {
	return &TracingOTP{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (o *TracingOTP) Send(ctx context.Context, channel, scope string) (domain.OTPIssue, error) {
	ctx, span := o.tracer.Start(ctx, "OTPService.Send",
		trace.WithAttributes(
			attribute.String("otp.channel", channel),
			attribute.String("otp.scope", scope),
		),
	)
	defer span.End()

	issue, err := o.next.Send(ctx, channel, scope)
	recordError(span, err)
	return issue, err
}

func (o *TracingOTP) Verify(ctx context.Context, channel, code string) error {
	ctx, span := o.tracer.Start(ctx, "OTPService.Verify",
		trace.WithAttributes(attribute.String("otp.channel", channel)),
	)
	defer span.End()

	err := o.next.Verify(ctx, channel, code)
	recordError(span, err)
	return err
}
