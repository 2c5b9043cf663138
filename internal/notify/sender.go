// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ferm/internal/config"
	"ferm/internal/validation"
)

// Error codes carried in Result.Code.
const (
	CodeDisabled         = "DISABLED"
	CodeInvalidRecipient = "INVALID_RECIPIENT"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeTimeout          = "TIMEOUT"
	CodeRejected         = "RECIPIENT_REJECTED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnknown          = "UNKNOWN"
)

// ErrInvalidConfig is returned by NewSMTPSender for unusable settings.
var ErrInvalidConfig = errors.New("invalid email configuration")

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Result describes one delivery attempt.
type Result struct {
	Delivered   bool
	Code        string
	Message     string
	Transient   bool
	DeliveredAt time.Time
}

func failed(code, msg string) *Result {
	return &Result{Code: code, Message: msg, Transient: isTransient(code)}
}

// Sender delivers messages. Send returns an error only when ctx is done;
// every other failure is described by the Result.
type Sender interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
	Enabled() bool
}

// New returns the sender configured by cfg: SMTP when enabled, otherwise
// a DisabledSender.
func New(cfg *config.EmailConfig) (Sender, error) {
	if cfg == nil || !cfg.Enabled {
		return DisabledSender{}, nil
	}
	return NewSMTPSender(cfg)
}

// ValidateAddress checks that addr is a single usable email address.
func ValidateAddress(addr string) error {
	if strings.ContainsAny(addr, "\r\n") {
		return fmt.Errorf("address contains line breaks")
	}
	if err := validation.GetValidator().Var(addr, "required,email"); err != nil {
		return fmt.Errorf("invalid email address %q", addr)
	}
	return nil
}

// DisabledSender never delivers. The maturity pipeline treats its result
// like any failed delivery.
type DisabledSender struct{}

// Send reports CodeDisabled.
func (DisabledSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return failed(CodeDisabled, "email delivery is disabled"), nil
}

// Enabled is always false.
func (DisabledSender) Enabled() bool { return false }

func isTransient(code string) bool {
	switch code {
	case CodeConnectionFailed, CodeTimeout, CodeRateLimited:
		return true
	default:
		return false
	}
}
