// Package observability registers prometheus collectors for business operations.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsRecordedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runtrack",
		Subsystem: "runs",
		Name:      "recorded_total",
		Help:      "Number of run sessions persisted.",
	})
	runDistanceHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runtrack",
		Subsystem: "runs",
		Name:      "distance_km",
		Help:      "Distribution of recorded run distances in kilometers.",
		Buckets:   []float64{1, 2.5, 5, 10, 15, 21.1, 30, 42.2},
	})
	lastRunPersistedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runtrack",
		Subsystem: "runs",
		Name:      "last_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent run persisted to Postgres.",
	})
	challengeJoinsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runtrack",
		Subsystem: "challenges",
		Name:      "joins_total",
		Help:      "Number of successful challenge joins.",
	})
	leaderboardDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runtrack",
		Subsystem: "ranking",
		Name:      "weekly_query_duration_seconds",
		Help:      "Time spent computing the weekly leaderboard.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(
		runsRecordedCounter,
		runDistanceHistogram,
		lastRunPersistedGauge,
		challengeJoinsCounter,
		leaderboardDuration,
	)
}

// RecordRunPersisted updates the run persistence counters and watermark.
func RecordRunPersisted(ts time.Time, distanceKm float64) {
	runsRecordedCounter.Inc()
	runDistanceHistogram.Observe(distanceKm)
	if !ts.IsZero() {
		lastRunPersistedGauge.Set(float64(ts.Unix()))
	}
}

// RecordChallengeJoin counts a committed challenge join.
func RecordChallengeJoin() {
	challengeJoinsCounter.Inc()
}

// ObserveLeaderboardQuery records how long a weekly leaderboard read took.
func ObserveLeaderboardQuery(d time.Duration) {
	leaderboardDuration.Observe(d.Seconds())
}
