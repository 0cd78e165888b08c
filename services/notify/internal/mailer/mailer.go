package mailer

import "context"

// Mailer delivers one email. Implementations decide transport; the worker
// treats every failure as best-effort and only logs it.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, text, html string) error
}
