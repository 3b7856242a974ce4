// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package metrics

import (
	"errors"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marqueehq/marquee/internal/rating"
)

// Prometheus instrumentation for:
// - API endpoint latency and throughput
// - Database query performance (PostgreSQL)
// - Rating submissions
// - Digest run outcomes and mail dispatch

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pg_query_duration_seconds",
			Help:    "Duration of PostgreSQL queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pg_query_errors_total",
			Help: "Total number of PostgreSQL query errors",
		},
		[]string{"operation", "table"},
	)

	// Rating Metrics
	RatingsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratings_applied_total",
			Help: "Total number of rating submissions applied",
		},
	)

	RatingsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_rejected_total",
			Help: "Total number of rating submissions rejected",
		},
		[]string{"reason"}, // "out_of_range", "invalid_votes", "conflict"
	)

	RatingRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rating_update_retries_total",
			Help: "Total number of optimistic rating update retries",
		},
	)

	// Digest Metrics
	DigestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_runs_total",
			Help: "Total number of digest runs by outcome",
		},
		[]string{"outcome"}, // "noop", "success", "failure"
	)

	DigestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_run_duration_seconds",
			Help:    "Duration of digest runs in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	DigestRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_recipients",
			Help:    "Number of recipients per dispatched digest",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	DigestLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digest_last_success_timestamp",
			Help: "Unix timestamp of the last successful digest dispatch",
		},
	)

	// Mail Circuit Breaker Metrics
	MailBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mail_circuit_breaker_state",
			Help: "SMTP circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	MailSendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mail_send_errors_total",
			Help: "Total number of failed mail dispatch attempts",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordRatingRejection counts a rejected rating submission under its
// reason label. Concurrency conflicts use the "conflict" label at their
// call site; unrelated errors are not counted.
func RecordRatingRejection(err error) {
	switch {
	case errors.Is(err, rating.ErrRatingOutOfRange):
		RatingsRejected.WithLabelValues("out_of_range").Inc()
	case errors.Is(err, rating.ErrInvalidVotes):
		RatingsRejected.WithLabelValues("invalid_votes").Inc()
	}
}

// SetAppInfo publishes the build information gauge. Called once at
// startup.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordDigestRun records a completed digest run
func RecordDigestRun(outcome string, duration time.Duration, recipients int) {
	DigestRunsTotal.WithLabelValues(outcome).Inc()
	DigestRunDuration.Observe(duration.Seconds())
	if outcome == "success" {
		DigestRecipients.Observe(float64(recipients))
		DigestLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
