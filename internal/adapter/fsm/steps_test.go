package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/neomorfeo/talladmin/internal/adapter/fsm"
	"github.com/neomorfeo/talladmin/internal/domain"
)

func TestStepValidator_AllTransitions(t *testing.T) {
	v := adapter.NewSteps()
	ctx := context.Background()

	for kind, table := range map[domain.FlowKind][]domain.StepTransition{
		domain.FlowLogin:    domain.LoginSteps,
		domain.FlowRecovery: domain.RecoverySteps,
	} {
		for _, tr := range table {
			got, err := v.Next(ctx, kind, tr.Src, tr.Action)
			if err != nil {
				t.Errorf("%s: Next(%q, %q) unexpected error: %v", kind, tr.Src, tr.Action, err)
				continue
			}
			if got != tr.Dst {
				t.Errorf("%s: Next(%q, %q) = %q, want %q", kind, tr.Src, tr.Action, got, tr.Dst)
			}
		}
	}
}

func TestStepValidator_ResendStaysAtOTP(t *testing.T) {
	v := adapter.NewSteps()

	got, err := v.Next(context.Background(), domain.FlowLogin, domain.StepOTP, domain.ActionResendOTP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.StepOTP {
		t.Errorf("got %q, want %q", got, domain.StepOTP)
	}
}

func TestStepValidator_Rejects(t *testing.T) {
	v := adapter.NewSteps()
	ctx := context.Background()

	cases := []struct {
		kind   domain.FlowKind
		step   domain.Step
		action domain.Action
	}{
		{domain.FlowLogin, domain.StepEmail, domain.ActionSubmitOTP},
		{domain.FlowLogin, domain.StepOTP, domain.ActionChangeEmail},
		{domain.FlowLogin, domain.StepPassword, domain.ActionSubmitReset},
		{domain.FlowLogin, domain.StepComplete, domain.ActionResendOTP},
		{domain.FlowRecovery, domain.StepEmail, domain.ActionSubmitPassword},
		{domain.FlowRecovery, domain.StepOTP, domain.ActionChangeEmail},
		{domain.FlowRecovery, domain.StepComplete, domain.ActionSubmitReset},
		{domain.FlowKind("sso"), domain.StepEmail, domain.ActionSubmitEmail},
	}

	for _, tc := range cases {
		_, err := v.Next(ctx, tc.kind, tc.step, tc.action)
		var stepErr *domain.StepError
		if !errors.As(err, &stepErr) {
			t.Errorf("%s: Next(%q, %q): expected StepError, got %v", tc.kind, tc.step, tc.action, err)
			continue
		}
		if stepErr.Action != tc.action || stepErr.Step != tc.step {
			t.Errorf("StepError = %+v, want action %q at %q", stepErr, tc.action, tc.step)
		}
	}
}
