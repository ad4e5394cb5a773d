package email

import (
	"context"
	"sync"

	"masterclass-reconciler/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.EmailSender = (*NoopSender)(nil)

// SentMail is a message captured by NoopSender.
type SentMail struct {
	To      string
	Subject string
	HTML    string
}

// NoopSender logs and keeps messages in memory instead of delivering them.
// Used in dev and in tests.
type NoopSender struct {
	mu   sync.Mutex
	sent []SentMail
	log  *zerolog.Logger
}

func NewNoopSender(logger *zerolog.Logger) *NoopSender {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "NoopEmail").Logger()
	return &NoopSender{log: &l}
}

func (s *NoopSender) Name() string { return "noop" }

func (s *NoopSender) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, SentMail{To: to, Subject: subject, HTML: html})
	s.mu.Unlock()
	s.log.Debug().Str("to", to).Str("subject", subject).Msg("email suppressed")
	return nil
}

// Sent returns a copy of captured messages.
func (s *NoopSender) Sent() []SentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMail, len(s.sent))
	copy(out, s.sent)
	return out
}
