package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/talladmin/internal/domain"
	"github.com/neomorfeo/talladmin/internal/metrics"
)

// TenantService orchestrates tenant onboarding and lifecycle operations.
type TenantService struct {
	repo      domain.TenantRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator

	notifier domain.Notifier
	jobs     domain.JobController
	archiver domain.Archiver

	metrics   *metrics.Metrics
	region    string
	retention time.Duration
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// TenantOption configures a TenantService.
type TenantOption func(*TenantService)

// WithSideEffects sets the collaborators used after a successful transition.
// A nil collaborator disables its effect.
func WithSideEffects(notifier domain.Notifier, jobs domain.JobController, archiver domain.Archiver) TenantOption {
	return func(s *TenantService) {
		s.notifier = notifier
		s.jobs = jobs
		s.archiver = archiver
	}
}

func WithTenantMetrics(m *metrics.Metrics) TenantOption {
	return func(s *TenantService) { s.metrics = m }
}

// WithPhoneRegion sets the region assumed for contact phones written
// without a country code.
func WithPhoneRegion(region string) TenantOption {
	return func(s *TenantService) { s.region = region }
}

func WithRetention(d time.Duration) TenantOption {
	return func(s *TenantService) { s.retention = d }
}

func WithTenantClock(now func() time.Time) TenantOption {
	return func(s *TenantService) { s.now = now }
}

// NewTenantService creates a service with the given adapters.
func NewTenantService(repo domain.TenantRepository, publisher domain.EventPublisher, validator domain.TransitionValidator, opts ...TenantOption) *TenantService {
	s := &TenantService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		region:    "US",
		retention: domain.DefaultRetention,
		now:       time.Now,
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	return s
}

// Create onboards a new tenant in the active state and publishes a creation event.
func (s *TenantService) Create(ctx context.Context, in domain.NewTenantInput) (domain.Tenant, error) {
	in, err := in.Normalize(s.region)
	if err != nil {
		return domain.Tenant{}, err
	}

	// Check domain uniqueness before creating.
	if _, err := s.repo.GetByDomain(ctx, in.Domain); err == nil {
		return domain.Tenant{}, &domain.DomainConflictError{Domain: in.Domain}
	} else if !errors.Is(err, domain.ErrTenantNotFound) {
		return domain.Tenant{}, directoryUnavailable(err)
	}

	tenant := domain.NewTenant(newID(), in.Name, in.Domain, in.Plan, in.Seats, in.Contact)

	if err := s.repo.Create(ctx, tenant); err != nil {
		var conflict *domain.DomainConflictError
		if errors.As(err, &conflict) {
			return domain.Tenant{}, err
		}
		return domain.Tenant{}, fmt.Errorf("creating tenant: %w", directoryUnavailable(err))
	}
	s.metrics.IncrementTenantCreated()

	if err := s.publisher.Publish(context.WithoutCancel(ctx), domain.EventCreated, tenant); err != nil {
		s.sideEffectFailed("publish", tenant.ID, domain.EventCreated, err)
	}

	log.Info().Str("tenant_id", tenant.ID).Str("tenant_domain", tenant.Domain).Msg("tenant created")
	return tenant, nil
}

// GetByID returns a tenant by its unique identifier.
func (s *TenantService) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns tenants matching the given filter.
func (s *TenantService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of active, suspended, deleted")
	}
	return s.repo.List(ctx, filter)
}

// History returns the recorded status changes of a tenant, oldest first.
func (s *TenantService) History(ctx context.Context, id string) ([]domain.StatusChange, error) {
	return s.repo.History(ctx, id)
}

// Suspend moves an active tenant to suspended.
func (s *TenantService) Suspend(ctx context.Context, id string, req domain.ActionRequest) (domain.Tenant, error) {
	return s.apply(ctx, id, domain.EventSuspend, req)
}

// Reactivate moves a suspended tenant back to active.
func (s *TenantService) Reactivate(ctx context.Context, id string, req domain.ActionRequest) (domain.Tenant, error) {
	return s.apply(ctx, id, domain.EventReactivate, req)
}

// Delete moves an active or suspended tenant to the terminal deleted state.
func (s *TenantService) Delete(ctx context.Context, id string, req domain.ActionRequest) (domain.Tenant, error) {
	return s.apply(ctx, id, domain.EventDelete, req)
}

// apply runs one guarded transition: legality, guard, compare-and-set write,
// then best-effort side effects. Nothing is mutated unless the write succeeds.
func (s *TenantService) apply(ctx context.Context, id string, event domain.Event, req domain.ActionRequest) (domain.Tenant, error) {
	if !s.acquire(id) {
		return domain.Tenant{}, domain.ErrActionInProgress
	}
	defer s.release(id)

	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			return domain.Tenant{}, err
		}
		return domain.Tenant{}, directoryUnavailable(err)
	}

	to, err := s.validator.Apply(ctx, tenant.Status, event)
	if err != nil {
		s.metrics.IncrementTransition(string(event), metrics.OutcomeRejected)
		return domain.Tenant{}, err
	}

	if err := req.Check(event, tenant); err != nil {
		s.metrics.IncrementTransition(string(event), metrics.OutcomeRejected)
		return domain.Tenant{}, err
	}

	change := req.Change(event, tenant.Status, to, s.now().UTC())

	if err := s.repo.SetStatus(ctx, id, change); err != nil {
		s.metrics.IncrementTransition(string(event), metrics.OutcomeFailed)
		if errors.Is(err, domain.ErrTenantNotFound) || errors.Is(err, domain.ErrStatusConflict) {
			return domain.Tenant{}, err
		}
		return domain.Tenant{}, fmt.Errorf("%s tenant: %w", event, directoryUnavailable(err))
	}

	tenant.Status = to
	tenant.UpdatedAt = change.At
	s.metrics.IncrementTransition(string(event), metrics.OutcomeAccepted)

	log.Info().
		Str("tenant_id", tenant.ID).
		Str("event", string(event)).
		Str("from", string(change.From)).
		Str("to", string(change.To)).
		Str("actor", change.Actor).
		Msg("tenant status changed")

	s.runSideEffects(context.WithoutCancel(ctx), tenant, change)
	return tenant, nil
}

// runSideEffects performs the requested effects of an accepted change
// concurrently. Failures are logged and counted; none is retried here.
func (s *TenantService) runSideEffects(ctx context.Context, tenant domain.Tenant, change domain.StatusChange) {
	var g errgroup.Group

	effect := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				s.sideEffectFailed(name, tenant.ID, change.Event, err)
			}
			return nil
		})
	}

	if change.Notify && s.notifier != nil && tenant.PrimaryContact.Email != "" {
		effect("notify", func() error {
			return s.notifier.Notify(ctx, s.notification(tenant, change))
		})
	}
	if change.PauseJobs && s.jobs != nil {
		effect("pause_jobs", func() error { return s.jobs.Pause(ctx, tenant.ID) })
	}
	if change.ResumeJobs && s.jobs != nil {
		effect("resume_jobs", func() error { return s.jobs.Resume(ctx, tenant.ID) })
	}
	if change.Archive && s.archiver != nil {
		effect("archive", func() error {
			return s.archiver.Archive(ctx, tenant, change.At.Add(s.retention))
		})
	}
	effect("publish", func() error { return s.publisher.Publish(ctx, change.Event, tenant) })

	_ = g.Wait()
}

func (s *TenantService) notification(tenant domain.Tenant, change domain.StatusChange) domain.Notification {
	payload := map[string]string{
		"tenant": tenant.Name,
		"from":   string(change.From),
		"to":     string(change.To),
		"reason": change.Reason,
	}
	if change.Archive {
		payload["retain_until"] = change.At.Add(s.retention).Format(time.DateOnly)
	}
	return domain.Notification{
		TenantID:     tenant.ID,
		ContactName:  tenant.PrimaryContact.Name,
		ContactEmail: tenant.PrimaryContact.Email,
		Event:        change.Event,
		Payload:      payload,
	}
}

func (s *TenantService) sideEffectFailed(effect, tenantID string, event domain.Event, err error) {
	s.metrics.IncrementSideEffectFailure(effect)
	log.Error().Err(err).
		Str("effect", effect).
		Str("tenant_id", tenantID).
		Str("event", string(event)).
		Msg("side effect failed")
}

func (s *TenantService) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *TenantService) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

func directoryUnavailable(err error) error {
	var unavailable *domain.UnavailableError
	if errors.As(err, &unavailable) {
		return err
	}
	return &domain.UnavailableError{Collaborator: "tenant directory", Err: err}
}
