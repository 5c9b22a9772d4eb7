package auth

import (
	"context"

	"resume-analyzer/internal/shared/telemetry"
)

// Mailer delivers account emails.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes emails to the log instead of sending them. Used in
// development and when no mail provider is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	telemetry.Info("mail.send", map[string]any{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	return nil
}
