package mailer

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/resilience"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends through Amazon SES.
type SESSender struct {
	client sesAPI
	from   string
}

// NewSESSender loads AWS credentials from the default chain.
func NewSESSender(ctx context.Context, region, from string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, eris.Wrap(err, "mailer: load aws config")
	}
	return &SESSender{client: ses.NewFromConfig(cfg), from: from}, nil
}

// Send implements Sender.
func (s *SESSender) Send(ctx context.Context, m Message) error {
	if err := validate(m); err != nil {
		return err
	}

	body := &types.Body{}
	if m.HTML != "" {
		body.Html = &types.Content{Data: aws.String(m.HTML), Charset: aws.String("UTF-8")}
	}
	if m.Text != "" {
		body.Text = &types.Content{Data: aws.String(m.Text), Charset: aws.String("UTF-8")}
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{m.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(m.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		zap.L().Warn("mailer: ses send failed", zap.String("to", m.To), zap.Error(err))
		return resilience.Transient(eris.Wrapf(ErrSendFailed, "mailer: ses to %s: %v", m.To, err))
	}
	zap.L().Debug("mailer: sent", zap.String("to", m.To), zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
