package http

import (
	"errors"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/talladmin/internal/domain"
)

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrTenantNotFound):
		return huma.Error404NotFound("tenant not found")
	case errors.Is(err, domain.ErrFlowNotFound):
		return huma.Error404NotFound("authentication flow not found")
	case errors.Is(err, domain.ErrStatusConflict),
		errors.Is(err, domain.ErrActionInProgress),
		errors.Is(err, domain.ErrFlowBusy),
		errors.Is(err, domain.ErrSuperseded):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrResendCooldown):
		return huma.Error429TooManyRequests(err.Error())
	case domain.IsVerificationFailure(err):
		return huma.Error401Unauthorized(err.Error())
	}

	var conflict *domain.DomainConflictError
	if errors.As(err, &conflict) {
		return huma.Error409Conflict(conflict.Error())
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return huma.Error422UnprocessableEntity("validation failed", fieldDetails(verr)...)
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var stepErr *domain.StepError
	if errors.As(err, &stepErr) {
		return huma.Error422UnprocessableEntity(stepErr.Error())
	}

	var unavailable *domain.UnavailableError
	if errors.As(err, &unavailable) {
		return huma.Error503ServiceUnavailable(unavailable.Collaborator + " unavailable")
	}

	return huma.Error500InternalServerError("internal server error")
}

func fieldDetails(verr *domain.ValidationError) []error {
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	details := make([]error, 0, len(fields))
	for _, f := range fields {
		details = append(details, &huma.ErrorDetail{
			Location: "body." + f,
			Message:  verr.Fields[f],
		})
	}
	return details
}
