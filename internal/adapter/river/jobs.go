package river

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/talladmin/internal/domain"
)

var (
	_ domain.Notifier      = (*Dispatcher)(nil)
	_ domain.JobController = (*Dispatcher)(nil)
	_ domain.Archiver      = (*Dispatcher)(nil)
	_ domain.CodeSender    = (*Dispatcher)(nil)
)

// NotifyJobArgs is a lifecycle notification for a tenant's primary contact.
type NotifyJobArgs struct {
	TenantID     string            `json:"tenant_id"`
	ContactName  string            `json:"contact_name"`
	ContactEmail string            `json:"contact_email"`
	Event        string            `json:"event"`
	Payload      map[string]string `json:"payload,omitempty"`
}

func (NotifyJobArgs) Kind() string { return "tenant.notify" }

// Job control actions.
const (
	JobActionPause  = "pause"
	JobActionResume = "resume"
)

// JobControlArgs relays a pause or resume signal for a tenant's background jobs.
type JobControlArgs struct {
	TenantID string `json:"tenant_id"`
	Action   string `json:"action"`
}

func (JobControlArgs) Kind() string { return "tenant.jobs" }

// ArchiveJobArgs snapshots a deleted tenant's data for the retention window.
type ArchiveJobArgs struct {
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Domain      string    `json:"domain"`
	RetainUntil time.Time `json:"retain_until"`
}

func (ArchiveJobArgs) Kind() string { return "tenant.archive" }

// PurgeJobArgs runs once the retention window of an archive has passed.
type PurgeJobArgs struct {
	TenantID string `json:"tenant_id"`
	Domain   string `json:"domain"`
}

func (PurgeJobArgs) Kind() string { return "tenant.purge" }

// CodeMailArgs delivers a one-time code by email.
type CodeMailArgs struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (CodeMailArgs) Kind() string { return "auth.code_mail" }

// Dispatcher turns side-effect requests into River jobs. Each method only
// enqueues; the matching worker performs the effect.
type Dispatcher struct {
	client *Client
}

// NewDispatcher creates a dispatcher backed by the given River client.
func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) error {
	_, err := d.client.Insert(ctx, NotifyJobArgs{
		TenantID:     n.TenantID,
		ContactName:  n.ContactName,
		ContactEmail: n.ContactEmail,
		Event:        string(n.Event),
		Payload:      n.Payload,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing notification: %w", err)
	}
	return nil
}

func (d *Dispatcher) Pause(ctx context.Context, tenantID string) error {
	return d.jobControl(ctx, tenantID, JobActionPause)
}

func (d *Dispatcher) Resume(ctx context.Context, tenantID string) error {
	return d.jobControl(ctx, tenantID, JobActionResume)
}

func (d *Dispatcher) jobControl(ctx context.Context, tenantID, action string) error {
	if _, err := d.client.Insert(ctx, JobControlArgs{TenantID: tenantID, Action: action}, nil); err != nil {
		return fmt.Errorf("enqueuing job %s: %w", action, err)
	}
	return nil
}

// Archive enqueues the archive snapshot now and the purge for retainUntil.
func (d *Dispatcher) Archive(ctx context.Context, tenant domain.Tenant, retainUntil time.Time) error {
	_, err := d.client.Insert(ctx, ArchiveJobArgs{
		TenantID:    tenant.ID,
		Name:        tenant.Name,
		Domain:      tenant.Domain,
		RetainUntil: retainUntil.UTC(),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing archive: %w", err)
	}

	_, err = d.client.Insert(ctx, PurgeJobArgs{TenantID: tenant.ID, Domain: tenant.Domain},
		&river.InsertOpts{ScheduledAt: retainUntil})
	if err != nil {
		return fmt.Errorf("scheduling purge: %w", err)
	}
	return nil
}

func (d *Dispatcher) SendCode(ctx context.Context, channel, code string, expiresAt time.Time) error {
	_, err := d.client.Insert(ctx, CodeMailArgs{Email: channel, Code: code, ExpiresAt: expiresAt.UTC()}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing code mail: %w", err)
	}
	return nil
}
