package app

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/neomorfeo/talladmin/internal/domain"
	"github.com/neomorfeo/talladmin/internal/metrics"
)

// DefaultFlowTTL is how long an untouched flow is kept.
const DefaultFlowTTL = 15 * time.Minute

// AuthService keeps the live authentication flows and drives their
// one-second clock.
type AuthService struct {
	deps AuthDeps
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	flows map[string]*AuthFlow
}

// NewAuthService creates a registry. A non-positive ttl uses DefaultFlowTTL;
// a nil now uses time.Now.
func NewAuthService(deps AuthDeps, ttl time.Duration, now func() time.Time) *AuthService {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	if now == nil {
		now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(prometheus.NewRegistry())
	}
	return &AuthService{
		deps:  deps,
		ttl:   ttl,
		now:   now,
		flows: make(map[string]*AuthFlow),
	}
}

// Start opens a new flow of the given kind.
func (s *AuthService) Start(kind domain.FlowKind) *AuthFlow {
	flow := NewAuthFlow(newID(), kind, s.deps, s.now)

	s.mu.Lock()
	s.flows[flow.id] = flow
	s.mu.Unlock()

	return flow
}

// Flow returns a live flow by ID.
func (s *AuthService) Flow(id string) (*AuthFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow, ok := s.flows[id]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return flow, nil
}

// Len returns the number of live flows.
func (s *AuthService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flows)
}

// Tick advances every flow's clock by one second and drops completed or
// expired flows.
func (s *AuthService) Tick() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, flow := range s.flows {
		if flow.expired(now, s.ttl) {
			delete(s.flows, id)
			continue
		}
		flow.Tick()
	}
}

// Run calls Tick once per second until ctx is done.
func (s *AuthService) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	log.Info().Dur("flow_ttl", s.ttl).Msg("auth flow clock started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}
