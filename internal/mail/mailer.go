// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package mail delivers digest messages over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/marqueehq/marquee/internal/metrics"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	From     string
	FromName string
	Username string
	Password string
	UseTLS   bool
	Timeout  time.Duration
}

// SMTPMailer sends one message per digest run, addressing the full recipient
// list on a single SMTP transaction. Dispatch goes through a circuit breaker
// so a dead relay fails fast instead of holding connections open.
type SMTPMailer struct {
	config  Config
	logger  zerolog.Logger
	breaker *gobreaker.CircuitBreaker[interface{}]

	// transport performs the actual SMTP exchange, replaceable in tests.
	transport func(ctx context.Context, recipients []string, msg []byte) error
}

// NewSMTPMailer creates an SMTP mailer. The From address must parse; other
// settings are validated lazily at dispatch time.
func NewSMTPMailer(cfg Config, logger *zerolog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid smtp port: %d", cfg.Port)
	}
	if _, err := netmail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", cfg.From, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	m := &SMTPMailer{
		config: cfg,
		logger: logger.With().Str("component", "mailer").Logger(),
	}
	m.transport = m.sendSMTP

	m.breaker = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.MailBreakerState.Set(float64(to))
			m.logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("SMTP circuit breaker state changed")
		},
	})

	return m, nil
}

// Send dispatches one message to all recipients.
func (m *SMTPMailer) Send(ctx context.Context, recipients []string, subject, bodyHTML string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}
	for _, r := range recipients {
		if _, err := netmail.ParseAddress(r); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", r, err)
		}
	}

	msg := m.buildMessage(recipients, subject, bodyHTML)

	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.transport(ctx, recipients, msg)
	})
	if err != nil {
		metrics.MailSendErrors.Inc()
		return fmt.Errorf("smtp dispatch failed: %w", err)
	}

	m.logger.Info().
		Int("recipients", len(recipients)).
		Str("subject", subject).
		Msg("Digest dispatched")
	return nil
}

// buildMessage constructs the RFC 5322 message with headers. Non-ASCII
// subjects are Q-encoded.
func (m *SMTPMailer) buildMessage(recipients []string, subject, bodyHTML string) []byte {
	var msg strings.Builder

	fromName := m.config.FromName
	if fromName == "" {
		fromName = "Marquee"
	}

	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, m.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(bodyHTML)
	msg.WriteString("\r\n")

	return []byte(msg.String())
}

// sendSMTP performs the SMTP exchange: one MAIL FROM, one RCPT per
// recipient, one DATA.
func (m *SMTPMailer) sendSMTP(ctx context.Context, recipients []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	dialer := &net.Dialer{Timeout: m.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if m.config.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: m.config.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.config.Username != "" && m.config.Password != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, r := range recipients {
		if err := client.Rcpt(r); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", r, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	if err := client.Quit(); err != nil {
		// Message was accepted; a failed QUIT is not a delivery failure.
		return nil
	}
	return nil
}

// BreakerState returns the current circuit breaker state for monitoring.
func (m *SMTPMailer) BreakerState() string {
	return m.breaker.State().String()
}
