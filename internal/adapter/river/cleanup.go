package river

import (
	"context"
	"errors"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog/log"
)

// CodeMailJanitor deletes code mail jobs once they reach a final state, so
// plaintext codes do not stay in river_job after delivery.
type CodeMailJanitor struct {
	client *Client
	events <-chan *river.Event
	cancel func()
}

// NewCodeMailJanitor subscribes to job outcomes right away. Call Run to
// start deleting.
func NewCodeMailJanitor(client *Client) *CodeMailJanitor {
	events, cancel := client.Subscribe(
		river.EventKindJobCompleted,
		river.EventKindJobCancelled,
		river.EventKindJobFailed,
	)
	return &CodeMailJanitor{client: client, events: events, cancel: cancel}
}

// Run deletes finished code mail jobs until ctx is done.
func (j *CodeMailJanitor) Run(ctx context.Context) error {
	defer j.cancel()

	kind := CodeMailArgs{}.Kind()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-j.events:
			if !ok {
				return nil
			}
			if event.Job == nil || event.Job.Kind != kind || !finished(event.Job.State) {
				continue
			}
			if _, err := j.client.JobDelete(ctx, event.Job.ID); err != nil && !errors.Is(err, rivertype.ErrNotFound) {
				log.Warn().Err(err).Int64("job_id", event.Job.ID).Msg("deleting code mail job")
			}
		}
	}
}

// finished excludes retryable jobs, which still need their arguments.
func finished(state rivertype.JobState) bool {
	switch state {
	case rivertype.JobStateCompleted, rivertype.JobStateCancelled, rivertype.JobStateDiscarded:
		return true
	}
	return false
}
