package mailer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/sanctuari/rfq-cli/internal/resilience"
)

type smtpDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	dialer smtpDialer
	from   string
}

// NewSMTPSender creates a sender for host:port with optional credentials.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{dialer: gomail.NewDialer(host, port, username, password), from: from}
}

// Send implements Sender. gomail does not take a context; cancellation is
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := validate(m); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "mailer: smtp")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	switch {
	case m.Text != "" && m.HTML != "":
		msg.SetBody("text/plain", m.Text)
		msg.AddAlternative("text/html", m.HTML)
	case m.HTML != "":
		msg.SetBody("text/html", m.HTML)
	default:
		msg.SetBody("text/plain", m.Text)
	}

	if err := s.dialer.DialAndSend(msg); err != nil {
		zap.L().Warn("mailer: smtp send failed", zap.String("to", m.To), zap.Error(err))
		return resilience.Transient(eris.Wrapf(ErrSendFailed, "mailer: smtp to %s: %v", m.To, err))
	}
	zap.L().Debug("mailer: sent", zap.String("to", m.To), zap.String("subject", m.Subject))
	return nil
}
