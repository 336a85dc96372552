package mailer

import (
	"context"

	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type logMailer struct {
	log *logger.Logger
}

// NewLogMailer returns a Mailer that only logs. Used when no transport is
// configured.
func NewLogMailer(log *logger.Logger) Mailer {
	return &logMailer{log: log.With("client", "LogMailer")}
}

func (l *logMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	l.log.Info("Mail not delivered (no transport configured)",
		"recipient_email", msg.To.Email,
		"subject", msg.Subject,
	)
	return nil
}
