// metrics — Prometheus-метрики бота. Регистрируются в переданном Registerer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — набор метрик доменных событий.
type Metrics struct {
	Events        *prometheus.CounterVec
	EventDuration *prometheus.HistogramVec
	Swipes        *prometheus.CounterVec
	Matches       prometheus.Counter
	QuotaRejected prometheus.Counter
	Onboarded     prometheus.Counter
	Candidates    *prometheus.CounterVec
	SweeperRuns   *prometheus.CounterVec
}

// New создаёт и регистрирует метрики. reg == nil -> метрики не регистрируются (тесты).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "events_total",
			Help:      "Incoming events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		EventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "matchbot",
			Name:      "event_duration_seconds",
			Help:      "Event handling duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		Swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "swipes_total",
			Help:      "Recorded swipes by polarity.",
		}, []string{"polarity"}),
		Matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "matches_total",
			Help:      "Newly formed mutual matches.",
		}),
		QuotaRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "quota_rejected_total",
			Help:      "Likes rejected because the daily quota is exhausted.",
		}),
		Onboarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "onboarding_completed_total",
			Help:      "Profiles created by onboarding.",
		}),
		Candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "candidate_requests_total",
			Help:      "Candidate selection outcomes.",
		}, []string{"outcome"}),
		SweeperRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "sweeper_runs_total",
			Help:      "Sweeper task runs by task and outcome.",
		}, []string{"task", "outcome"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Events, m.EventDuration, m.Swipes, m.Matches,
			m.QuotaRejected, m.Onboarded, m.Candidates, m.SweeperRuns,
		)
	}

	return m
}
