// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// scheduler.go - Release-digest scheduler
//
// The scheduler fires once per day at a configured cron time, evaluated in a
// fixed reference timezone, and executes a single digest run:
//
//  1. Compute the [start, end] bounds of "today" in the reference timezone.
//  2. Query non-deleted movies released within those bounds, title ascending.
//  3. Empty match set: terminate with outcome NoOp.
//  4. Query all active recipient addresses.
//  5. Empty recipient list: terminate with outcome NoOp.
//  6. Render one aggregate digest document.
//  7. Dispatch it as a single message to the full recipient list.
//  8. Record the outcome. Dispatch failure is logged, never retried, and
//     never escapes the run.
//
// Exactly one run may execute at a time; a manual RunNow invocation while a
// run is in flight fails with ErrRunInProgress. Stop prevents future firings
// but lets an in-flight run finish.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/marqueehq/marquee/internal/digest"
	"github.com/marqueehq/marquee/internal/metrics"
)

// ErrRunInProgress is returned by RunNow when a digest run is already
// executing.
var ErrRunInProgress = errors.New("digest run already in progress")

// Store defines the persistence operations required by the scheduler.
type Store interface {
	// MoviesReleasedBetween returns non-deleted movies whose release date
	// falls within [start, end], ordered by title ascending.
	MoviesReleasedBetween(ctx context.Context, start, end time.Time) ([]digest.Item, error)

	// ActiveRecipientEmails returns the email addresses of all active users.
	ActiveRecipientEmails(ctx context.Context) ([]string, error)
}

// Mailer dispatches a rendered digest to a recipient list in one message.
type Mailer interface {
	Send(ctx context.Context, recipients []string, subject, bodyHTML string) error
}

// Outcome classifies how a digest run terminated.
type Outcome string

// Run outcomes.
const (
	// OutcomeNoOp means nothing matched or nobody was subscribed; no
	// message was sent and no error occurred.
	OutcomeNoOp Outcome = "noop"

	// OutcomeSuccess means the digest was dispatched.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure means a lookup, render, or dispatch step failed. The
	// error is captured in the report and the scheduler returns to idle.
	OutcomeFailure Outcome = "failure"
)

// RunReport describes a single digest run. It exists only for the duration
// of the run; there is no durable audit trail.
type RunReport struct {
	StartedAt      time.Time     `json:"startedAt"`
	Duration       time.Duration `json:"-"`
	DurationMs     int64         `json:"durationMs"`
	Outcome        Outcome       `json:"outcome"`
	MatchedCount   int           `json:"matchedCount"`
	RecipientCount int           `json:"recipientCount"`
	Error          string        `json:"error,omitempty"`
}

// Config holds scheduler configuration.
type Config struct {
	// Enabled controls whether the scheduled loop fires. RunNow works
	// either way.
	Enabled bool

	// CronSpec is the 5-field cron expression for the daily trigger.
	CronSpec string

	// Timezone is the reference timezone used both to evaluate CronSpec
	// and to compute the "today" release-date bounds.
	Timezone string

	// Subject overrides the digest subject line. Empty uses the default.
	Subject string
}

// DefaultConfig returns the default scheduler configuration: daily at 08:00
// in the America/Sao_Paulo reference timezone.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		CronSpec: "0 8 * * *",
		Timezone: "America/Sao_Paulo",
	}
}

// Scheduler runs the daily release digest. Construct it with New and hold it
// wherever the process lifecycle is owned; there is no package-level
// instance.
type Scheduler struct {
	store    Store
	mailer   Mailer
	renderer *digest.Renderer
	logger   zerolog.Logger
	cron     *CronExpression
	loc      *time.Location
	subject  string
	enabled  bool

	// now is the clock, replaceable in tests.
	now func() time.Time

	mu          sync.Mutex
	running     bool
	stopping    bool
	runInFlight bool
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// New creates a scheduler. The cron expression and timezone are validated
// here so a misconfiguration fails at startup, not at the first firing.
func New(store Store, mailer Mailer, renderer *digest.Renderer, logger *zerolog.Logger, cfg Config) (*Scheduler, error) {
	if cfg.CronSpec == "" {
		cfg.CronSpec = DefaultConfig().CronSpec
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultConfig().Timezone
	}
	if cfg.Subject == "" {
		cfg.Subject = digest.Subject
	}

	cron, err := ParseCron(cfg.CronSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid digest cron expression %q: %w", cfg.CronSpec, err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid digest timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		store:    store,
		mailer:   mailer,
		renderer: renderer,
		logger:   logger.With().Str("component", "digest-scheduler").Logger(),
		cron:     cron,
		loc:      loc,
		subject:  cfg.Subject,
		enabled:  cfg.Enabled,
		now:      time.Now,
	}, nil
}

// Start begins the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.enabled {
		s.logger.Info().Msg("Digest scheduler disabled")
		go func() {
			defer close(s.doneCh)
			<-s.stopCh
		}()
		return nil
	}

	s.logger.Info().
		Str("timezone", s.loc.String()).
		Time("next_run", s.cron.NextRun(s.now(), s.loc)).
		Msg("Starting digest scheduler")

	go s.loop(ctx)
	return nil
}

// Stop stops the scheduling loop and waits for it to exit. An in-flight run
// is allowed to finish; only future firings are prevented.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	if s.stopping {
		// Another Stop owns the shutdown; wait for it to finish.
		s.mu.Unlock()
		<-s.doneCh
		return nil
	}
	s.stopping = true
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.stopping = false
	s.mu.Unlock()

	s.logger.Info().Msg("Digest scheduler stopped")
	return nil
}

// IsRunning reports whether the scheduling loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// loop sleeps until each next cron firing and executes a run.
func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	for {
		next := s.cron.NextRun(s.now(), s.loc)
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-timer.C:
			if _, err := s.runOnce(ctx); errors.Is(err, ErrRunInProgress) {
				// A manual run is still executing; skip this firing.
				s.logger.Warn().Msg("Scheduled digest skipped, run already in progress")
			}
		case <-s.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// RunNow executes one digest run synchronously. It is the operator-facing
// manual trigger and shares the exact code path of scheduled runs, including
// the no-overlap guard.
func (s *Scheduler) RunNow(ctx context.Context) (*RunReport, error) {
	return s.runOnce(ctx)
}

// runOnce executes a single digest run. All failures are captured in the
// report; the only error return is the overlap guard.
func (s *Scheduler) runOnce(ctx context.Context) (*RunReport, error) {
	s.mu.Lock()
	if s.runInFlight {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.runInFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.runInFlight = false
		s.mu.Unlock()
	}()

	started := s.now().In(s.loc)
	report := &RunReport{StartedAt: started}

	start, end := dayBounds(started)
	items, err := s.store.MoviesReleasedBetween(ctx, start, end)
	if err != nil {
		return s.finish(report, OutcomeFailure, fmt.Errorf("release lookup failed: %w", err)), nil
	}
	report.MatchedCount = len(items)

	if len(items) == 0 {
		s.logger.Info().Msg("No movies released today")
		return s.finish(report, OutcomeNoOp, nil), nil
	}

	recipients, err := s.store.ActiveRecipientEmails(ctx)
	if err != nil {
		return s.finish(report, OutcomeFailure, fmt.Errorf("recipient lookup failed: %w", err)), nil
	}
	report.RecipientCount = len(recipients)

	if len(recipients) == 0 {
		s.logger.Info().Int("matched", len(items)).Msg("No recipients for release digest")
		return s.finish(report, OutcomeNoOp, nil), nil
	}

	body, err := s.renderer.Render(items, started)
	if err != nil {
		return s.finish(report, OutcomeFailure, fmt.Errorf("digest render failed: %w", err)), nil
	}

	// One aggregate message, all recipients addressed together.
	if err := s.mailer.Send(ctx, recipients, s.subject, body); err != nil {
		return s.finish(report, OutcomeFailure, fmt.Errorf("digest dispatch failed: %w", err)), nil
	}

	return s.finish(report, OutcomeSuccess, nil), nil
}

// finish stamps the report, records metrics, and logs the result.
func (s *Scheduler) finish(report *RunReport, outcome Outcome, err error) *RunReport {
	report.Outcome = outcome
	report.Duration = s.now().In(s.loc).Sub(report.StartedAt)
	report.DurationMs = report.Duration.Milliseconds()
	if err != nil {
		report.Error = err.Error()
	}

	metrics.RecordDigestRun(string(outcome), report.Duration, report.RecipientCount)

	event := s.logger.Info()
	if outcome == OutcomeFailure {
		event = s.logger.Error().Str("error", report.Error)
	}
	event.
		Str("outcome", string(outcome)).
		Int("matched", report.MatchedCount).
		Int("recipients", report.RecipientCount).
		Dur("duration", report.Duration).
		Msg("Digest run finished")

	return report
}

// dayBounds returns the inclusive bounds of the calendar day containing t,
// in t's location: 00:00:00.000 through 23:59:59.999.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
	return start, end
}
