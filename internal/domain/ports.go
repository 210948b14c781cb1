package domain

import (
	"context"
	"time"
)

// TenantRepository defines the persistence contract for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetByDomain(ctx context.Context, domain string) (Tenant, error)
	List(ctx context.Context, filter ListFilter) ([]Tenant, error)
	// SetStatus moves the tenant from change.From to change.To and records
	// the change. It fails with ErrStatusConflict when the stored status is
	// no longer change.From.
	SetStatus(ctx context.Context, id string, change StatusChange) error
	History(ctx context.Context, id string) ([]StatusChange, error)
}

// ListFilter holds optional criteria for listing tenants.
// Deleted tenants are only returned when Status asks for them.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// EventPublisher defines the contract for emitting domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, tenant Tenant) error
}

// TransitionValidator decides whether an event is legal from a tenant status.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// StepValidator decides whether an action is legal at a flow step.
type StepValidator interface {
	Next(ctx context.Context, kind FlowKind, current Step, action Action) (Step, error)
}

// Notification is a message for a tenant's primary contact.
type Notification struct {
	TenantID     string
	ContactName  string
	ContactEmail string
	Event        Event
	Payload      map[string]string
}

// Notifier delivers lifecycle notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// JobController relays the pause/resume hint for a tenant's background jobs.
type JobController interface {
	Pause(ctx context.Context, tenantID string) error
	Resume(ctx context.Context, tenantID string) error
}

// Archiver retains a deleted tenant's data until the given time.
type Archiver interface {
	Archive(ctx context.Context, tenant Tenant, retainUntil time.Time) error
}

// CredentialService checks and changes console account credentials.
type CredentialService interface {
	VerifyIdentity(ctx context.Context, email string) (bool, error)
	VerifyPassword(ctx context.Context, email, password string) (bool, error)
	SetPassword(ctx context.Context, email, newPassword string) error
}

// SessionIssuer grants a console session once a login completes.
type SessionIssuer interface {
	CreateSession(ctx context.Context, email string) (string, error)
}

// OTPService issues and checks one-time codes sent to a channel (an email
// address). scope names the requester (a flow ID); resend limits are kept
// per scope while the code itself is per channel. Verify returns nil on
// success, ErrInvalidOTP, ErrOTPExpired or ErrRateLimited on rejection.
type OTPService interface {
	Send(ctx context.Context, channel, scope string) (OTPIssue, error)
	Verify(ctx context.Context, channel, code string) error
}

// Message is an outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// CodeSender delivers a freshly generated one-time code to its channel.
type CodeSender interface {
	SendCode(ctx context.Context, channel, code string, expiresAt time.Time) error
}
