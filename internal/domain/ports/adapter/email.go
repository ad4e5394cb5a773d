package adapter

import "context"

// EmailSender is the outbound e-mail port. Callers treat every send as best-effort.
type EmailSender interface {
	Name() string
	Send(ctx context.Context, to, subject, html string) error
}
