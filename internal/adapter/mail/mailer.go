// Package mail holds the outgoing email adapters.
package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/neomorfeo/talladmin/internal/domain"
)

var _ domain.Mailer = (*LogMailer)(nil)

// LogMailer writes outgoing email to a structured log instead of an SMTP
// relay. Message bodies are logged at debug level only.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a mailer that logs to logger.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, msg domain.Message) error {
	m.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email sent")
	m.logger.Debug().
		Str("to", msg.To).
		Str("body", msg.Body).
		Msg("email body")
	return nil
}
