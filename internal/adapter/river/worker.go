package river

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog/log"

	"github.com/neomorfeo/talladmin/internal/domain"
)

// EventWorker processes domain event jobs from the River queue.
// It records the event in the structured log, which is the audit stream.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	log.Info().
		Str("event", job.Args.Event).
		Str("tenant_id", job.Args.TenantID).
		Str("tenant_domain", job.Args.Domain).
		Str("status", job.Args.Status).
		Time("occurred_at", job.Args.OccurredAt).
		Int64("job_id", job.ID).
		Int("attempt", job.Attempt).
		Msg("processing event")
	return nil
}

// NotifyWorker emails a tenant's primary contact about a lifecycle change.
type NotifyWorker struct {
	river.WorkerDefaults[NotifyJobArgs]
	mailer domain.Mailer
}

func (w *NotifyWorker) Work(ctx context.Context, job *river.Job[NotifyJobArgs]) error {
	args := job.Args
	if args.ContactEmail == "" {
		log.Warn().Str("tenant_id", args.TenantID).Msg("no contact email, notification dropped")
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\nYour workspace received a %q action.\n", args.ContactName, args.Event)
	keys := make([]string, 0, len(args.Payload))
	for k := range args.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&body, "%s: %s\n", k, args.Payload[k])
	}

	return w.mailer.Send(ctx, domain.Message{
		To:      args.ContactEmail,
		Subject: fmt.Sprintf("Workspace update: %s", args.Event),
		Body:    body.String(),
	})
}

// JobControlWorker relays the pause/resume signal. The jobs themselves live
// outside this service, so the signal is recorded and acknowledged.
type JobControlWorker struct {
	river.WorkerDefaults[JobControlArgs]
}

func (w *JobControlWorker) Work(ctx context.Context, job *river.Job[JobControlArgs]) error {
	switch job.Args.Action {
	case JobActionPause, JobActionResume:
	default:
		return river.JobCancel(fmt.Errorf("unknown job action %q", job.Args.Action))
	}
	log.Info().
		Str("tenant_id", job.Args.TenantID).
		Str("action", job.Args.Action).
		Msg("tenant background jobs signalled")
	return nil
}

// ArchiveWorker marks the start of a tenant's retention window.
type ArchiveWorker struct {
	river.WorkerDefaults[ArchiveJobArgs]
}

func (w *ArchiveWorker) Work(ctx context.Context, job *river.Job[ArchiveJobArgs]) error {
	log.Info().
		Str("tenant_id", job.Args.TenantID).
		Str("tenant_domain", job.Args.Domain).
		Time("retain_until", job.Args.RetainUntil).
		Msg("tenant data archived")
	return nil
}

// PurgeWorker ends a tenant's retention window.
type PurgeWorker struct {
	river.WorkerDefaults[PurgeJobArgs]
}

func (w *PurgeWorker) Work(ctx context.Context, job *river.Job[PurgeJobArgs]) error {
	log.Info().
		Str("tenant_id", job.Args.TenantID).
		Str("tenant_domain", job.Args.Domain).
		Msg("tenant archive retention expired")
	return nil
}

// CodeMailWorker emails a one-time code.
type CodeMailWorker struct {
	river.WorkerDefaults[CodeMailArgs]
	mailer domain.Mailer
}

func (w *CodeMailWorker) Work(ctx context.Context, job *river.Job[CodeMailArgs]) error {
	remaining := time.Until(job.Args.ExpiresAt)
	if remaining <= 0 {
		return river.JobCancel(fmt.Errorf("code for %s expired before delivery", job.Args.Email))
	}
	return w.mailer.Send(ctx, domain.Message{
		To:      job.Args.Email,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", job.Args.Code, max(int(remaining.Round(time.Minute)/time.Minute), 1)),
	})
}
