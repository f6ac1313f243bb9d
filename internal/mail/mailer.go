// Package mail provides transactional email delivery with pluggable
// providers.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Common mail errors.
var (
	// ErrSendFailed indicates the provider rejected or failed the send.
	ErrSendFailed = errors.New("failed to send email")

	// ErrInvalidMessage indicates the message is missing required fields.
	ErrInvalidMessage = errors.New("invalid email message")
)

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Validate returns an error if the message cannot be sent.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrInvalidMessage)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidMessage)
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		return fmt.Errorf("%w: missing body", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes emails to the log instead of delivering them. Used in
// development and as the fallback when no provider is configured.
type LogSender struct {
	logger *slog.Logger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender creates a Sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{
		logger: logger.With(slog.String("component", "log_mailer")),
	}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email send skipped, logging only",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject))
	return nil
}
