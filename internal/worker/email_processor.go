package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/yeschef/yeschef-api/internal/mail"
	"github.com/yeschef/yeschef-api/internal/queue"
)

const verificationEmailSubject = "Verify Your Email - YesChef"

const verificationEmailHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome to YesChef!</h2>
  <p>Please verify your email address to complete your registration.</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4CAF50; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block;">Verify Email</a>
  </div>
  <p>If the button doesn't work, copy and paste this link into your browser:</p>
  <p style="word-break: break-all; color: #666;">%s</p>
  <p>This link will expire in 24 hours.</p>
  <p>If you didn't create an account, please ignore this email.</p>
</div>`

// EmailProcessor handles transactional email jobs.
type EmailProcessor struct {
	sender      mail.Sender
	frontendURL string
	logger      *slog.Logger
}

// NewEmailProcessor creates a processor for email jobs. frontendURL is the
// base URL that verification links point at.
func NewEmailProcessor(sender mail.Sender, frontendURL string, logger *slog.Logger) *EmailProcessor {
	return &EmailProcessor{
		sender:      sender,
		frontendURL: frontendURL,
		logger:      logger.With(slog.String("component", "email_processor")),
	}
}

// Handle implements queue.HandlerFunc for email jobs.
func (p *EmailProcessor) Handle(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case TypeVerificationEmail:
		return p.handleVerification(ctx, job)
	default:
		return queue.Permanent(fmt.Errorf("unknown email job type %q", job.Type))
	}
}

func (p *EmailProcessor) handleVerification(ctx context.Context, job *queue.Job) error {
	var payload VerificationEmailPayload
	if err := queue.DecodePayload(job, &payload); err != nil {
		return queue.Permanent(err)
	}
	if payload.Email == "" || payload.VerificationToken == "" {
		return queue.Permanent(fmt.Errorf("verification email job %s missing email or token", job.ID))
	}

	link := p.verificationLink(payload.VerificationToken)
	msg := mail.Message{
		To:       payload.Email,
		Subject:  verificationEmailSubject,
		HTMLBody: fmt.Sprintf(verificationEmailHTML, link, link),
		TextBody: fmt.Sprintf("Welcome to YesChef! Verify your email: %s (link expires in 24 hours)", link),
	}

	if err := p.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	p.logger.InfoContext(ctx, "verification email sent",
		slog.String("to", payload.Email))
	return nil
}

func (p *EmailProcessor) verificationLink(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", p.frontendURL, url.QueryEscape(token))
}
