package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "callscreen"

// Lookup and renewal outcomes used as metric labels.
const (
	OutcomeOK                = "ok"
	OutcomeTransient         = "transient"
	OutcomeCredentialInvalid = "credential_invalid"
	OutcomeFailed            = "failed"
	OutcomeSkipped           = "skipped"
)

// Metrics counts session transitions, identity lookups and renewals. A nil
// *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	lookups     *prometheus.CounterVec
	renewals    *prometheus.CounterVec
}

// NewMetrics creates the session counters and registers them on reg. A nil reg
// creates unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session phase changes by the phase entered.",
		}, []string{"phase"}),
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "lookups_total",
			Help:      "Identity lookups by classified outcome.",
		}, []string{"outcome"}),
		renewals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "renewals_total",
			Help:      "Background credential renewals by outcome.",
		}, []string{"outcome"}),
	}
}

// Transitions returns the counter of phase changes, labelled by the phase entered.
func (m *Metrics) Transitions() *prometheus.CounterVec { return m.transitions }

// Lookups returns the counter of identity lookups, labelled by outcome.
func (m *Metrics) Lookups() *prometheus.CounterVec { return m.lookups }

// Renewals returns the counter of credential renewals, labelled by outcome.
func (m *Metrics) Renewals() *prometheus.CounterVec { return m.renewals }

func (m *Metrics) transition(p Phase) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(p)).Inc()
}

func (m *Metrics) lookup(outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) renewal(outcome string) {
	if m == nil {
		return
	}
	m.renewals.WithLabelValues(outcome).Inc()
}
