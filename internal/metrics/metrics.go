package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы выбора пары
const (
	PairPrimary  = "primary"
	PairFallback = "fallback"
	PairReset    = "reset"
)

// Metrics счетчики приложения. Все методы безопасны для nil-получателя,
// поэтому сервисы в тестах можно создавать без метрик.
type Metrics struct {
	PairSelections      *prometheus.CounterVec
	VotesRecorded       prometheus.Counter
	Registrations       *prometheus.CounterVec
	IdentityLookupFails *prometheus.CounterVec
	OnlineUsers         prometheus.Gauge
}

// New регистрирует метрики в reg. Для /metrics обычно передается prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PairSelections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newedenfaces_pair_selections_total",
			Help: "Pair selections by outcome (primary gender, opposite gender fallback, pool reset)",
		}, []string{"outcome"}),
		VotesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "newedenfaces_votes_recorded_total",
			Help: "Total number of recorded votes",
		}),
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newedenfaces_registrations_total",
			Help: "Registration attempts by result",
		}, []string{"result"}),
		IdentityLookupFails: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newedenfaces_identity_lookup_failures_total",
			Help: "Failed identity provider lookups by kind (transport, parse)",
		}, []string{"kind"}),
		OnlineUsers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "newedenfaces_online_users",
			Help: "Current number of connected visitors",
		}),
	}
}

func (m *Metrics) IncrementPairSelection(outcome string) {
	if m == nil {
		return
	}
	m.PairSelections.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementVotes() {
	if m == nil {
		return
	}
	m.VotesRecorded.Inc()
}

func (m *Metrics) IncrementRegistration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementIdentityFailure(kind string) {
	if m == nil {
		return
	}
	m.IdentityLookupFails.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetOnlineUsers(count int64) {
	if m == nil {
		return
	}
	m.OnlineUsers.Set(float64(count))
}
