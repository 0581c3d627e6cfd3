// Package mailer sends transactional email over SMTP or Amazon SES.
package mailer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrSendFailed wraps every transport error.
var ErrSendFailed = eris.New("mailer: send failed")

// Message is one email to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

func validate(m Message) error {
	if strings.TrimSpace(m.To) == "" {
		return eris.Wrap(ErrSendFailed, "mailer: empty recipient")
	}
	if m.HTML == "" && m.Text == "" {
		return eris.Wrapf(ErrSendFailed, "mailer: empty body for %s", m.To)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. It is the
// development default.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, m Message) error {
	if err := validate(m); err != nil {
		return err
	}
	zap.L().Info("mailer: message not sent (log provider)",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("text", m.Text),
	)
	return nil
}
