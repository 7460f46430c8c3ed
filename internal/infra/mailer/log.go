package mailer

import (
	"context"
	"log/slog"

	"github.com/yanqian/meteo-burkina/internal/domain/auth"
)

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a log-only mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "mailer.log")}
}

// Send logs the recipient, subject and text body.
func (m *LogMailer) Send(_ context.Context, msg auth.Message) error {
	m.logger.Info("mail not sent, smtp disabled", "to", msg.To, "subject", msg.Subject, "body", msg.TextBody)
	return nil
}

var _ auth.Mailer = (*LogMailer)(nil)
