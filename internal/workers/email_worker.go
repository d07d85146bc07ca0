package workers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gitdev-app/backend/internal/mail"
	"github.com/gitdev-app/backend/internal/queue"
)

// EmailSender delivers queued emails.
type EmailSender interface {
	Send(email *mail.Email) error
}

func emailHandlers(sender EmailSender, log zerolog.Logger) map[string]queue.HandlerFunc {
	return map[string]queue.HandlerFunc{
		queue.JobEmailSend: func(ctx context.Context, job *queue.Job) error {
			var email mail.Email
			if err := job.Decode(&email); err != nil {
				return err
			}
			if err := sender.Send(&email); err != nil {
				return err
			}
			log.Info().Str("to", email.To).Msg("notification email delivered")
			return nil
		},
	}
}
