package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/talladmin/internal/domain"
)

var _ domain.EventPublisher = (*Publisher)(nil)

// eventMaxAttempts bounds retries of the audit job.
const eventMaxAttempts = 5

// EventJobArgs is a snapshot of a tenant at the moment a lifecycle event
// was published. The worker never reads the tenant table.
type EventJobArgs struct {
	Event      string    `json:"event"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	Domain     string    `json:"domain"`
	Status     string    `json:"status"`
	Plan       string    `json:"plan"`
	Seats      int       `json:"seats"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (EventJobArgs) Kind() string { return "event.published" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
	now    func() time.Time
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client, now: time.Now}
}

// Publish enqueues the event for the audit worker.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, tenant domain.Tenant) error {
	args := EventJobArgs{
		Event:      string(event),
		TenantID:   tenant.ID,
		Name:       tenant.Name,
		Domain:     tenant.Domain,
		Status:     string(tenant.Status),
		Plan:       tenant.Plan,
		Seats:      tenant.Seats,
		OccurredAt: p.now().UTC(),
	}
	if _, err := p.client.Insert(ctx, args, &river.InsertOpts{MaxAttempts: eventMaxAttempts}); err != nil {
		return fmt.Errorf("enqueuing %s event for tenant %s: %w", event, tenant.ID, err)
	}
	return nil
}
