// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

/*
Package metrics provides Prometheus metrics collection and export for observability.

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Active requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)
    Labels: endpoint

Database Metrics:
  - pg_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - pg_query_errors_total: Failed queries (counter)
    Labels: operation, table

Rating Metrics:
  - ratings_applied_total: Rating submissions applied (counter)
  - ratings_rejected_total: Rating submissions rejected (counter)
    Labels: reason (out_of_range, invalid_votes, conflict)
  - rating_update_retries_total: Optimistic update retries (counter)

Digest Metrics:
  - digest_runs_total: Digest runs by outcome (counter)
    Labels: outcome (noop, success, failure)
  - digest_run_duration_seconds: Run duration (histogram)
  - digest_recipients: Recipients per dispatched digest (histogram)
  - digest_last_success_timestamp: Unix timestamp of last dispatch (gauge)

Mail Metrics:
  - mail_circuit_breaker_state: SMTP breaker state (gauge)
    Values: 0=closed, 1=half-open, 2=open
  - mail_send_errors_total: Failed dispatch attempts (counter)

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

Endpoint labels use chi route patterns (no path parameters or query strings),
and rejection reasons are limited to predefined constants.
*/
package metrics
