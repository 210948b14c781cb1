package domain

import "time"

// OTPResendCooldown is the number of ticks (seconds) after each OTP issuance
// during which a resend is refused.
const OTPResendCooldown = 60

// OTPMaxLength caps the length of a submitted one-time code.
const OTPMaxLength = 6

// FlowKind distinguishes the two verification flows.
type FlowKind string

const (
	FlowLogin    FlowKind = "login"
	FlowRecovery FlowKind = "recovery"
)

// Step is a position within an authentication flow.
type Step string

const (
	StepEmail    Step = "email"
	StepPassword Step = "password"
	StepOTP      Step = "otp"
	StepReset    Step = "reset"
	StepComplete Step = "complete"
)

// Action is an operator action that may move a flow between steps.
type Action string

const (
	ActionSubmitEmail    Action = "submit_email"
	ActionSubmitPassword Action = "submit_password"
	ActionSubmitOTP      Action = "submit_otp"
	ActionResendOTP      Action = "resend_otp"
	ActionChangeEmail    Action = "change_email"
	ActionSubmitReset    Action = "submit_reset"
)

// StepTransition is one legal move of an authentication flow.
type StepTransition struct {
	Action Action
	Src    Step
	Dst    Step
}

// LoginSteps is the step table of the login flow.
var LoginSteps = []StepTransition{
	{Action: ActionSubmitEmail, Src: StepEmail, Dst: StepPassword},
	{Action: ActionSubmitPassword, Src: StepPassword, Dst: StepOTP},
	{Action: ActionChangeEmail, Src: StepPassword, Dst: StepEmail},
	{Action: ActionResendOTP, Src: StepOTP, Dst: StepOTP},
	{Action: ActionSubmitOTP, Src: StepOTP, Dst: StepComplete},
}

// RecoverySteps is the step table of the password recovery flow.
var RecoverySteps = []StepTransition{
	{Action: ActionSubmitEmail, Src: StepEmail, Dst: StepOTP},
	{Action: ActionResendOTP, Src: StepOTP, Dst: StepOTP},
	{Action: ActionSubmitOTP, Src: StepOTP, Dst: StepReset},
	{Action: ActionSubmitReset, Src: StepReset, Dst: StepComplete},
}

// StepsFor returns the step table of the given flow kind.
func StepsFor(kind FlowKind) []StepTransition {
	if kind == FlowRecovery {
		return RecoverySteps
	}
	return LoginSteps
}

// Attempt is the state of one login or recovery interaction.
type Attempt struct {
	Kind              FlowKind
	Step              Step
	Email             string
	Password          string
	OTPCode           string
	OTPResendCooldown int
	OTPExpiresAt      time.Time
	SessionToken      string
}

// NewAttempt starts a flow of the given kind at the email step.
func NewAttempt(kind FlowKind) Attempt {
	return Attempt{Kind: kind, Step: StepEmail}
}

// CanResend reports whether a new one-time code may be requested.
func (a Attempt) CanResend() bool {
	return a.Step == StepOTP && a.OTPResendCooldown == 0
}

// OTPIssue describes a freshly issued one-time code.
type OTPIssue struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
}
