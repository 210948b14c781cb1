// Package metrics holds the Prometheus instruments of the console backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded on lifecycle and auth counters.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"

	// OutcomeSuperseded marks an auth call whose result was discarded
	// because the flow moved on while it was outstanding.
	OutcomeSuperseded = "superseded"
)

type Metrics struct {
	LifecycleTransitions *prometheus.CounterVec
	SideEffectFailures   *prometheus.CounterVec
	TenantsCreated       prometheus.Counter
	AuthSteps            *prometheus.CounterVec
	AuthCallDuration     *prometheus.HistogramVec
}

// New registers the instruments with reg. Each registry can hold one set.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LifecycleTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "talladmin_lifecycle_transitions_total",
			Help: "Tenant lifecycle transition attempts by event and outcome",
		}, []string{"event", "outcome"}),
		SideEffectFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "talladmin_side_effect_failures_total",
			Help: "Best-effort lifecycle side effects that failed, by effect",
		}, []string{"effect"}),
		TenantsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "talladmin_tenants_created_total",
			Help: "Total number of tenants onboarded",
		}),
		AuthSteps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "talladmin_auth_steps_total",
			Help: "Authentication flow actions by flow kind, action and outcome",
		}, []string{"kind", "action", "outcome"}),
		AuthCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talladmin_auth_call_duration_seconds",
			Help:    "Duration of collaborator calls made by authentication flows",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"action"}),
	}
}

func (m *Metrics) IncrementTransition(event, outcome string) {
	m.LifecycleTransitions.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) IncrementSideEffectFailure(effect string) {
	m.SideEffectFailures.WithLabelValues(effect).Inc()
}

func (m *Metrics) IncrementTenantCreated() {
	m.TenantsCreated.Inc()
}

func (m *Metrics) IncrementAuthStep(kind, action, outcome string) {
	m.AuthSteps.WithLabelValues(kind, action, outcome).Inc()
}

func (m *Metrics) ObserveAuthCall(action string, start time.Time) {
	m.AuthCallDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}
