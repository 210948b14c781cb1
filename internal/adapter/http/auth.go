package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/talladmin/internal/app"
	"github.com/neomorfeo/talladmin/internal/domain"
)

// FlowResponse is the API representation of an authentication flow.
type FlowResponse struct {
	ID                string `json:"id" doc:"Flow ID"`
	Kind              string `json:"kind" doc:"login or recovery"`
	Step              string `json:"step" doc:"Current step"`
	Email             string `json:"email,omitempty" doc:"Email accepted at the email step"`
	OTPResendCooldown int    `json:"otp_resend_cooldown" doc:"Seconds until a new code may be requested"`
	OTPExpiresAt      string `json:"otp_expires_at,omitempty" doc:"Expiry of the last issued code"`
	CanResend         bool   `json:"can_resend" doc:"Whether a new code may be requested now"`
	Busy              bool   `json:"busy" doc:"Whether a verification is in flight"`
	SessionToken      string `json:"session_token,omitempty" doc:"Bearer token, set once a login completes"`
}

func toFlowResponse(s app.FlowSnapshot) FlowResponse {
	resp := FlowResponse{
		ID:                s.ID,
		Kind:              string(s.Kind),
		Step:              string(s.Step),
		Email:             s.Email,
		OTPResendCooldown: s.OTPResendCooldown,
		CanResend:         s.CanResend,
		Busy:              s.Busy,
		SessionToken:      s.SessionToken,
	}
	if !s.OTPExpiresAt.IsZero() {
		resp.OTPExpiresAt = s.OTPExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type FlowOutput struct {
	Body FlowResponse
}

type FlowPathInput struct {
	ID string `path:"id" doc:"Flow ID"`
}

type EmailInput struct {
	ID   string `path:"id" doc:"Flow ID"`
	Body struct {
		Email string `json:"email" doc:"Operator email"`
	}
}

type PasswordInput struct {
	ID   string `path:"id" doc:"Flow ID"`
	Body struct {
		Password string `json:"password" doc:"Operator password"`
	}
}

type OTPInput struct {
	ID   string `path:"id" doc:"Flow ID"`
	Body struct {
		Code string `json:"code" doc:"One-time code"`
	}
}

type ResetInput struct {
	ID   string `path:"id" doc:"Flow ID"`
	Body struct {
		NewPassword     string `json:"new_password" doc:"New password"`
		ConfirmPassword string `json:"confirm_password" doc:"New password, repeated"`
	}
}

// RegisterAuth adds the login and recovery routes to the Huma API.
func RegisterAuth(api huma.API, svc *app.AuthService) {
	for _, kind := range []domain.FlowKind{domain.FlowLogin, domain.FlowRecovery} {
		huma.Register(api, huma.Operation{
			OperationID:   "start-" + string(kind),
			Method:        http.MethodPost,
			Path:          "/api/v1/auth/" + string(kind),
			Summary:       "Start a " + string(kind) + " flow",
			Tags:          []string{"Auth"},
			DefaultStatus: http.StatusCreated,
		}, func(_ context.Context, _ *struct{}) (*FlowOutput, error) {
			return &FlowOutput{Body: toFlowResponse(svc.Start(kind).Snapshot())}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-flow",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/flows/{id}",
		Summary:     "Get an authentication flow",
		Tags:        []string{"Auth"},
	}, func(_ context.Context, input *FlowPathInput) (*FlowOutput, error) {
		flow, err := svc.Flow(input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &FlowOutput{Body: toFlowResponse(flow.Snapshot())}, nil
	})

	registerStep(api, svc, "submit-email", "/email", "Submit the operator email",
		func(ctx context.Context, f *app.AuthFlow, in *EmailInput) (app.FlowSnapshot, error) {
			return f.SubmitEmail(ctx, in.Body.Email)
		})
	registerStep(api, svc, "submit-password", "/password", "Submit the operator password",
		func(ctx context.Context, f *app.AuthFlow, in *PasswordInput) (app.FlowSnapshot, error) {
			return f.SubmitPassword(ctx, in.Body.Password)
		})
	registerStep(api, svc, "submit-otp", "/otp", "Submit the one-time code",
		func(ctx context.Context, f *app.AuthFlow, in *OTPInput) (app.FlowSnapshot, error) {
			return f.SubmitOTP(ctx, in.Body.Code)
		})
	registerStep(api, svc, "resend-otp", "/otp/resend", "Request a new one-time code",
		func(ctx context.Context, f *app.AuthFlow, _ *FlowPathInput) (app.FlowSnapshot, error) {
			return f.ResendOTP(ctx)
		})
	registerStep(api, svc, "change-email", "/email/change", "Go back to the email step",
		func(ctx context.Context, f *app.AuthFlow, _ *FlowPathInput) (app.FlowSnapshot, error) {
			return f.UseDifferentEmail(ctx)
		})
	registerStep(api, svc, "submit-reset", "/reset", "Set a new password",
		func(ctx context.Context, f *app.AuthFlow, in *ResetInput) (app.FlowSnapshot, error) {
			return f.SubmitReset(ctx, in.Body.NewPassword, in.Body.ConfirmPassword)
		})
}

type flowIDer interface {
	flowID() string
}

func (in *FlowPathInput) flowID() string { return in.ID }
func (in *EmailInput) flowID() string    { return in.ID }
func (in *PasswordInput) flowID() string { return in.ID }
func (in *OTPInput) flowID() string      { return in.ID }
func (in *ResetInput) flowID() string    { return in.ID }

func registerStep[I any, P interface {
	*I
	flowIDer
}](api huma.API, svc *app.AuthService, opID, suffix, summary string, step func(context.Context, *app.AuthFlow, P) (app.FlowSnapshot, error)) {
	huma.Register(api, huma.Operation{
		OperationID: opID,
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/flows/{id}" + suffix,
		Summary:     summary,
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *I) (*FlowOutput, error) {
		flow, err := svc.Flow(P(input).flowID())
		if err != nil {
			return nil, toHumaError(err)
		}
		snap, err := step(ctx, flow, P(input))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &FlowOutput{Body: toFlowResponse(snap)}, nil
	})
}
