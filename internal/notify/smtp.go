// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ferm/internal/config"
	"ferm/internal/logging"
)

// SMTPSender sends plain-text mail through one relay.
type SMTPSender struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	from     string
	timeout  time.Duration
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewSMTPSender validates cfg and builds a sender. RatePerMinute <= 0
// disables throttling.
func NewSMTPSender(cfg *config.EmailConfig) (*SMTPSender, error) {
	switch {
	case cfg.Host == "":
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	case cfg.Port <= 0 || cfg.Port > 65535:
		return nil, fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	}
	if err := ValidateAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("%w: from: %v", ErrInvalidConfig, err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}

	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		secure:   cfg.Secure,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		timeout:  30 * time.Second,
		limiter:  limiter,
		now:      time.Now,
	}, nil
}

// Enabled is always true.
func (s *SMTPSender) Enabled() bool { return true }

// Send delivers msg, waiting for the rate limiter first.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	if err := ValidateAddress(msg.To); err != nil {
		return failed(CodeInvalidRecipient, err.Error()), nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failed(CodeRateLimited, err.Error()), nil
	}

	if err := s.send(ctx, msg.To, s.buildMessage(msg)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		code := classifyError(err)
		logging.Warn().Err(err).Str("code", code).Str("host", s.host).Msg("Email delivery failed")
		return failed(code, err.Error()), nil
	}

	return &Result{Delivered: true, DeliveredAt: s.now()}, nil
}

func (s *SMTPSender) buildMessage(msg *Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.String()
}

func (s *SMTPSender) send(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	tlsConfig := &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if s.secure {
		conn = tls.Client(conn, tlsConfig)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if !s.secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if s.user != "" && s.password != "" {
		auth := smtp.PlainAuth("", s.user, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// The relay has accepted the message once DATA is closed.
	_ = client.Quit()
	return nil
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

func classifyError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "authentication"):
		return CodeAuthFailed
	case strings.Contains(errStr, "connect"):
		return CodeConnectionFailed
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline"):
		return CodeTimeout
	case strings.Contains(errStr, "recipient"), strings.Contains(errStr, "mailbox"):
		return CodeRejected
	case strings.Contains(errStr, "rate"), strings.Contains(errStr, "limit"):
		return CodeRateLimited
	default:
		return CodeUnknown
	}
}
