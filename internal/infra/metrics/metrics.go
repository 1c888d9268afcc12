// Package metrics provides Prometheus metrics for the engagement engine:
// counters, gauges, and histograms for completions, points, limiter
// rejections, AI calls, and batch jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Completions ────────────────────────────────────────────────────────────

// ChallengesCompleted tracks completed challenges by category.
var ChallengesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "coverquest",
	Name:      "challenges_completed_total",
	Help:      "Total completed challenges.",
}, []string{"category"})

// ChallengesAbandoned tracks abandoned challenges.
var ChallengesAbandoned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "coverquest",
	Name:      "challenges_abandoned_total",
	Help:      "Total abandoned challenges.",
})

// LimiterRejections tracks daily-cap rejections by reason.
var LimiterRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "coverquest",
	Name:      "limiter_rejections_total",
	Help:      "Completions rejected by the daily limiter.",
}, []string{"reason"})

// StreakEvents tracks streak transitions by tag.
var StreakEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "coverquest",
	Name:      "streak_events_total",
	Help:      "Streak transitions by outcome tag.",
}, []string{"tag"})

// ─── Points ─────────────────────────────────────────────────────────────────

// PointsEarned tracks Protection Points credited to users.
var PointsEarned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "coverquest",
	Name:      "points_earned_total",
	Help:      "Total Protection Points credited.",
})

// PointsRedeemed tracks Protection Points spent on rewards.
var PointsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "coverquest",
	Name:      "points_redeemed_total",
	Help:      "Total Protection Points redeemed.",
})

// ─── AI Collaborator ────────────────────────────────────────────────────────

// AIRequests tracks text-generation calls by capability and outcome.
var AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "coverquest",
	Name:      "ai_requests_total",
	Help:      "Text-generation requests by capability and outcome.",
}, []string{"capability", "outcome"})

// AILatency tracks text-generation request duration in seconds.
var AILatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "coverquest",
	Name:      "ai_latency_seconds",
	Help:      "Text-generation request duration in seconds.",
	Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
})

// ─── Batch Jobs ─────────────────────────────────────────────────────────────

// JobDuration tracks scheduled job run duration by job name.
var JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "coverquest",
	Name:      "job_duration_seconds",
	Help:      "Scheduled job run duration in seconds.",
	Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
}, []string{"job"})

// JobUsersProcessed tracks users handled per batch job.
var JobUsersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "coverquest",
	Name:      "job_users_processed_total",
	Help:      "Users processed by batch jobs.",
}, []string{"job"})

// JobUsersSkipped tracks users skipped by batch jobs.
var JobUsersSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "coverquest",
	Name:      "job_users_skipped_total",
	Help:      "Users skipped by batch jobs after an isolated failure.",
}, []string{"job"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "coverquest",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// UsersTotal tracks the registered user count.
var UsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "coverquest",
	Name:      "users_total",
	Help:      "Number of registered users.",
})
