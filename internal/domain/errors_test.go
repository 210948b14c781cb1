package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/neomorfeo/talladmin/internal/domain"
)

func TestDomainConflictError_Error(t *testing.T) {
	err := &domain.DomainConflictError{Domain: "acme.io"}
	want := `domain "acme.io" is already in use`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Event:   domain.EventReactivate,
		Current: domain.StatusActive,
	}
	want := `event "reactivate" is not valid from state "active"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestStepError_Error(t *testing.T) {
	err := &domain.StepError{Action: domain.ActionResendOTP, Step: domain.StepPassword}
	want := `action "resend_otp" is not valid at step "password"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationError_ErrorIsSorted(t *testing.T) {
	err := &domain.ValidationError{Fields: map[string]string{
		"reason":    "cannot be blank",
		"confirmed": "must be confirmed",
	}}
	want := "validation failed: confirmed: must be confirmed; reason: cannot be blank"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnavailableError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("suspend: %w", &domain.UnavailableError{Collaborator: "database", Err: cause})

	var unavailable *domain.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatal("errors.As failed to find *UnavailableError")
	}
	if unavailable.Collaborator != "database" {
		t.Errorf("Collaborator = %q, want %q", unavailable.Collaborator, "database")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIsVerificationFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{domain.ErrInvalidCredentials, true},
		{fmt.Errorf("otp: %w", domain.ErrInvalidOTP), true},
		{domain.ErrOTPExpired, true},
		{domain.ErrRateLimited, true},
		{domain.ErrFlowBusy, false},
		{domain.NewValidationError("email", "cannot be blank"), false},
		{&domain.UnavailableError{Collaborator: "otp", Err: errors.New("timeout")}, false},
	}
	for _, tt := range tests {
		if got := domain.IsVerificationFailure(tt.err); got != tt.want {
			t.Errorf("IsVerificationFailure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
