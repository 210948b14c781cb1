package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrStatusConflict   = errors.New("tenant status changed concurrently")
	ErrActionInProgress = errors.New("a lifecycle action is already in progress for this tenant")

	ErrFlowNotFound = errors.New("authentication flow not found")
	ErrFlowBusy     = errors.New("a verification is already in progress")
	ErrSuperseded   = errors.New("result discarded: the flow moved on")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid one-time code")
	ErrOTPExpired         = errors.New("one-time code expired")
	ErrRateLimited        = errors.New("too many attempts")
	ErrResendCooldown     = errors.New("one-time code resend is not available yet")
)

// IsVerificationFailure reports whether err is a rejected verification
// (as opposed to a validation problem or an unreachable collaborator).
func IsVerificationFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidOTP) ||
		errors.Is(err, ErrOTPExpired) ||
		errors.Is(err, ErrRateLimited)
}

// DomainConflictError is returned when a tenant domain is already in use.
type DomainConflictError struct {
	Domain string
}

func (e *DomainConflictError) Error() string {
	return fmt.Sprintf("domain %q is already in use", e.Domain)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// StepError is returned when an authentication action is not allowed at the
// flow's current step.
type StepError struct {
	Action Action
	Step   Step
}

func (e *StepError) Error() string {
	return fmt.Sprintf("action %q is not valid at step %q", e.Action, e.Step)
}

// ValidationError reports input that failed local checks. Fields maps the
// offending field to a human readable message.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(errs))}
	for field, fieldErr := range errs {
		if fieldErr != nil {
			out.Fields[field] = fieldErr.Error()
		}
	}
	return out
}

// UnavailableError wraps a failure to reach an external collaborator.
type UnavailableError struct {
	Collaborator string
	Err          error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
