// Package metrics holds the economy collectors and the HTTP server that
// exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	XPCredited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_xp_credited_total",
		Help: "XP credited to players after multipliers, by source.",
	}, []string{"source"})

	XPSpent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_xp_spent_total",
		Help: "XP debited from players, by sink.",
	}, []string{"sink"})

	StakeRounds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_stake_rounds_total",
		Help: "Completed stake rounds by game and outcome.",
	}, []string{"game", "outcome"})

	CrashPoints = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trivia_crash_point",
		Help:    "Distribution of drawn crash points.",
		Buckets: []float64{1.1, 1.5, 2, 3, 5, 10, 25, 50, 100, 250, 1000},
	})

	RitualDraws = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_ritual_draws_total",
		Help: "Ritual draws by granted effect.",
	}, []string{"effect"})

	PersistenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_persistence_failures_total",
		Help: "Local store writes that failed and left state unsaved.",
	}, []string{"component"})

	RemoteSyncFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_remote_sync_failures_total",
		Help: "Remote mirror writes dropped after retries, by sink.",
	}, []string{"sink"})

	RemoteSyncDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trivia_remote_sync_dropped_total",
		Help: "Remote mirror writes dropped because the queue was full.",
	})
)

// Collectors returns every economy collector for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		XPCredited,
		XPSpent,
		StakeRounds,
		CrashPoints,
		RitualDraws,
		PersistenceFailures,
		RemoteSyncFailures,
		RemoteSyncDropped,
	}
}
