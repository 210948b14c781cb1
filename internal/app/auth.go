package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/neomorfeo/talladmin/internal/domain"
	"github.com/neomorfeo/talladmin/internal/metrics"
)

// AuthDeps are the collaborators shared by every authentication flow.
type AuthDeps struct {
	Credentials domain.CredentialService
	Sessions    domain.SessionIssuer
	OTP         domain.OTPService
	Steps       domain.StepValidator
	Metrics     *metrics.Metrics
}

// FlowSnapshot is a read-only view of an attempt. It never carries the
// password or the one-time code.
type FlowSnapshot struct {
	ID                string
	Kind              domain.FlowKind
	Step              domain.Step
	Email             string
	OTPResendCooldown int
	OTPExpiresAt      time.Time
	CanResend         bool
	Busy              bool
	SessionToken      string
}

// AuthFlow drives one login or recovery attempt. At most one collaborator
// call is outstanding at a time; UseDifferentEmail abandons it.
type AuthFlow struct {
	id   string
	deps AuthDeps
	now  func() time.Time

	mu         sync.Mutex
	attempt    domain.Attempt
	busy       bool
	generation uint64
	cancel     context.CancelFunc
	lastActive time.Time
}

// NewAuthFlow starts a flow of the given kind at the email step.
func NewAuthFlow(id string, kind domain.FlowKind, deps AuthDeps, now func() time.Time) *AuthFlow {
	if now == nil {
		now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(prometheus.NewRegistry())
	}
	return &AuthFlow{
		id:         id,
		deps:       deps,
		now:        now,
		attempt:    domain.NewAttempt(kind),
		lastActive: now(),
	}
}

// mutation updates the attempt after a successful collaborator call.
type mutation func(a *domain.Attempt)

// SubmitEmail verifies the identity behind email. Recovery flows also send
// the first one-time code.
func (f *AuthFlow) SubmitEmail(ctx context.Context, email string) (FlowSnapshot, error) {
	email = domain.NormalizeEmail(email)
	check := func(domain.Attempt) error { return domain.ValidateEmail(email) }

	return f.run(ctx, domain.ActionSubmitEmail, check, func(ctx context.Context, a domain.Attempt) (mutation, error) {
		ok, err := f.deps.Credentials.VerifyIdentity(ctx, email)
		if err != nil {
			return nil, unavailable("credential service", err)
		}
		if !ok {
			return nil, domain.ErrInvalidCredentials
		}

		if a.Kind != domain.FlowRecovery {
			return func(a *domain.Attempt) { a.Email = email }, nil
		}

		issue, err := f.sendOTP(ctx, email)
		if err != nil {
			return nil, err
		}
		return func(a *domain.Attempt) {
			a.Email = email
			issued(a, issue)
		}, nil
	})
}

// SubmitPassword verifies the password and sends a one-time code.
func (f *AuthFlow) SubmitPassword(ctx context.Context, password string) (FlowSnapshot, error) {
	check := func(domain.Attempt) error {
		if password == "" {
			return domain.NewValidationError("password", "cannot be blank")
		}
		return nil
	}

	return f.run(ctx, domain.ActionSubmitPassword, check, func(ctx context.Context, a domain.Attempt) (mutation, error) {
		ok, err := f.deps.Credentials.VerifyPassword(ctx, a.Email, password)
		if err != nil {
			return nil, unavailable("credential service", err)
		}
		if !ok {
			return nil, domain.ErrInvalidCredentials
		}

		issue, err := f.sendOTP(ctx, a.Email)
		if err != nil {
			return nil, err
		}
		return func(a *domain.Attempt) {
			a.Password = password
			issued(a, issue)
		}, nil
	})
}

// SubmitOTP verifies the one-time code. A login flow then receives its
// session; a recovery flow moves on to the reset step.
func (f *AuthFlow) SubmitOTP(ctx context.Context, code string) (FlowSnapshot, error) {
	code = strings.TrimSpace(code)
	check := func(domain.Attempt) error {
		if code == "" || len(code) > domain.OTPMaxLength {
			return domain.NewValidationError("code", "must be 1 to 6 characters")
		}
		return nil
	}

	return f.run(ctx, domain.ActionSubmitOTP, check, func(ctx context.Context, a domain.Attempt) (mutation, error) {
		if err := f.deps.OTP.Verify(ctx, a.Email, code); err != nil {
			if domain.IsVerificationFailure(err) {
				return nil, err
			}
			return nil, unavailable("otp service", err)
		}

		if a.Kind != domain.FlowLogin {
			return func(a *domain.Attempt) { a.OTPCode = code }, nil
		}

		token, err := f.deps.Sessions.CreateSession(ctx, a.Email)
		if err != nil {
			return nil, unavailable("session service", err)
		}
		return func(a *domain.Attempt) {
			a.OTPCode = code
			a.SessionToken = token
		}, nil
	})
}

// ResendOTP issues a fresh one-time code once the cooldown has run out.
func (f *AuthFlow) ResendOTP(ctx context.Context) (FlowSnapshot, error) {
	check := func(a domain.Attempt) error {
		if !a.CanResend() {
			return domain.ErrResendCooldown
		}
		return nil
	}

	return f.run(ctx, domain.ActionResendOTP, check, func(ctx context.Context, a domain.Attempt) (mutation, error) {
		issue, err := f.sendOTP(ctx, a.Email)
		if err != nil {
			return nil, err
		}
		return func(a *domain.Attempt) { issued(a, issue) }, nil
	})
}

// SubmitReset sets the new password of a recovery flow.
func (f *AuthFlow) SubmitReset(ctx context.Context, newPassword, confirmPassword string) (FlowSnapshot, error) {
	check := func(domain.Attempt) error {
		fields := map[string]string{}
		if newPassword == "" {
			fields["new_password"] = "cannot be blank"
		}
		if confirmPassword == "" {
			fields["confirm_password"] = "cannot be blank"
		}
		if len(fields) == 0 && newPassword != confirmPassword {
			fields["confirm_password"] = "passwords do not match"
		}
		if len(fields) > 0 {
			return &domain.ValidationError{Fields: fields}
		}
		return nil
	}

	return f.run(ctx, domain.ActionSubmitReset, check, func(ctx context.Context, a domain.Attempt) (mutation, error) {
		if err := f.deps.Credentials.SetPassword(ctx, a.Email, newPassword); err != nil {
			if errors.Is(err, domain.ErrInvalidCredentials) {
				return nil, err
			}
			return nil, unavailable("credential service", err)
		}
		return func(*domain.Attempt) {}, nil
	})
}

// UseDifferentEmail returns a login flow from the password step to the
// email step. The password is cleared and any in-flight call is abandoned.
func (f *AuthFlow) UseDifferentEmail(ctx context.Context) (FlowSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := f.deps.Steps.Next(ctx, f.attempt.Kind, f.attempt.Step, domain.ActionChangeEmail)
	if err != nil {
		f.count(domain.ActionChangeEmail, metrics.OutcomeRejected)
		return f.snapshotLocked(), err
	}

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.generation++
	f.busy = false

	f.attempt.Step = next
	f.attempt.Password = ""
	f.lastActive = f.now()
	f.count(domain.ActionChangeEmail, metrics.OutcomeAccepted)

	return f.snapshotLocked(), nil
}

// Tick advances the resend cooldown by one second.
func (f *AuthFlow) Tick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempt.OTPResendCooldown > 0 {
		f.attempt.OTPResendCooldown--
	}
}

// Snapshot returns the current state of the flow.
func (f *AuthFlow) Snapshot() FlowSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *AuthFlow) snapshotLocked() FlowSnapshot {
	a := f.attempt
	return FlowSnapshot{
		ID:                f.id,
		Kind:              a.Kind,
		Step:              a.Step,
		Email:             a.Email,
		OTPResendCooldown: a.OTPResendCooldown,
		OTPExpiresAt:      a.OTPExpiresAt,
		CanResend:         a.CanResend(),
		Busy:              f.busy,
		SessionToken:      a.SessionToken,
	}
}

// expired reports whether the registry may drop the flow: it is complete,
// or idle for longer than ttl with no call outstanding.
func (f *AuthFlow) expired(now time.Time, ttl time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false
	}
	return f.attempt.Step == domain.StepComplete || now.Sub(f.lastActive) > ttl
}

// run executes one action. The step table and the precondition are checked
// under the lock; the collaborator call runs without it; its result is
// committed only if no newer action superseded it in the meantime.
func (f *AuthFlow) run(
	ctx context.Context,
	action domain.Action,
	check func(domain.Attempt) error,
	call func(context.Context, domain.Attempt) (mutation, error),
) (FlowSnapshot, error) {
	f.mu.Lock()
	if f.busy {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, domain.ErrFlowBusy
	}

	next, err := f.deps.Steps.Next(ctx, f.attempt.Kind, f.attempt.Step, action)
	if err == nil {
		err = check(f.attempt)
	}
	if err != nil {
		f.count(action, metrics.OutcomeRejected)
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, err
	}

	callCtx, cancel := context.WithCancel(ctx)
	f.busy = true
	f.generation++
	gen := f.generation
	f.cancel = cancel
	current := f.attempt
	f.lastActive = f.now()
	f.mu.Unlock()

	start := time.Now()
	apply, callErr := call(callCtx, current)
	f.deps.Metrics.ObserveAuthCall(string(action), start)

	f.mu.Lock()
	defer f.mu.Unlock()
	cancel()

	if f.generation != gen {
		f.count(action, metrics.OutcomeSuperseded)
		return f.snapshotLocked(), domain.ErrSuperseded
	}
	f.busy = false
	f.cancel = nil
	f.lastActive = f.now()

	if callErr != nil {
		outcome := metrics.OutcomeRejected
		var unavailableErr *domain.UnavailableError
		if errors.As(callErr, &unavailableErr) {
			outcome = metrics.OutcomeFailed
			log.Warn().Err(callErr).Str("flow_id", f.id).Str("action", string(action)).Msg("auth collaborator unavailable")
		}
		f.count(action, outcome)
		return f.snapshotLocked(), callErr
	}

	apply(&f.attempt)
	f.attempt.Step = next
	f.count(action, metrics.OutcomeAccepted)
	return f.snapshotLocked(), nil
}

func (f *AuthFlow) sendOTP(ctx context.Context, channel string) (domain.OTPIssue, error) {
	issue, err := f.deps.OTP.Send(ctx, channel, f.id)
	if err != nil {
		if errors.Is(err, domain.ErrResendCooldown) || domain.IsVerificationFailure(err) {
			return domain.OTPIssue{}, err
		}
		return domain.OTPIssue{}, unavailable("otp service", err)
	}
	return issue, nil
}

func (f *AuthFlow) count(action domain.Action, outcome string) {
	f.deps.Metrics.IncrementAuthStep(string(f.attempt.Kind), string(action), outcome)
}

func issued(a *domain.Attempt, issue domain.OTPIssue) {
	a.OTPResendCooldown = domain.OTPResendCooldown
	a.OTPExpiresAt = issue.ExpiresAt
}

func unavailable(collaborator string, err error) error {
	var u *domain.UnavailableError
	if errors.As(err, &u) {
		return err
	}
	return &domain.UnavailableError{Collaborator: collaborator, Err: err}
}
