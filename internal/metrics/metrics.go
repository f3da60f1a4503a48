package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chatsync"

// Metrics groups the collectors shared by the sync loop and the coordinators.
type Metrics struct {
	SyncTicks    *prometheus.CounterVec
	StaleSyncs   prometheus.Counter
	Mutations    *prometheus.CounterVec
	Moderation   *prometheus.CounterVec
	ViewMessages prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_ticks_total",
			Help:      "Sync ticks by outcome.",
		}, []string{"outcome"}),
		StaleSyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_stale_total",
			Help:      "Sync responses discarded because a newer tick was issued.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Send, edit and delete requests by outcome.",
		}, []string{"op", "outcome"}),
		Moderation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_actions_total",
			Help:      "Ban, unban, promote and demote requests by outcome.",
		}, []string{"action", "outcome"}),
		ViewMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_messages",
			Help:      "Messages currently held by the local view.",
		}),
	}

	reg.MustRegister(m.SyncTicks, m.StaleSyncs, m.Mutations, m.Moderation, m.ViewMessages)
	return m
}

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeGone     = "gone"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
)
