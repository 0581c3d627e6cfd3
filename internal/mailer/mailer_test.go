package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, in)
	if out := args.Get(0); out != nil {
		return out.(*ses.SendEmailOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSMTPSender_Send(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	s := &SMTPSender{dialer: d, from: "no-reply@sanctuari.in"}

	err := s.Send(context.Background(), MagicLink("asha@acme.in", "https://app/cb?token=x"))
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"asha@acme.in"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"no-reply@sanctuari.in"}, d.sent[0].GetHeader("From"))
}

func TestSMTPSender_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ctx  func() context.Context
		msg  Message
		err  error
	}{
		{"transport", context.Background, Message{To: "a@b.in", Text: "hi"}, errors.New("connection refused")},
		{"no recipient", context.Background, Message{Text: "hi"}, nil},
		{"no body", context.Background, Message{To: "a@b.in"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &SMTPSender{dialer: &fakeDialer{err: tt.err}, from: "x@y.in"}
			err := s.Send(tt.ctx(), tt.msg)
			assert.True(t, errors.Is(err, ErrSendFailed))
		})
	}
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	s := &SMTPSender{dialer: d, from: "x@y.in"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, Message{To: "a@b.in", Text: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.sent)
}

func TestSESSender_Send(t *testing.T) {
	t.Parallel()
	api := &mockSES{}
	api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return aws.ToString(in.Source) == "no-reply@sanctuari.in" &&
			len(in.Destination.ToAddresses) == 1 && in.Destination.ToAddresses[0] == "uw@insurer.in" &&
			in.Message.Body.Html != nil && in.Message.Body.Text != nil
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil)
	s := &SESSender{client: api, from: "no-reply@sanctuari.in"}

	err := s.Send(context.Background(), Invitation("uw@insurer.in", "", "Acme", "RFQ-1", "https://app/i/abc"))
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestSESSender_Error(t *testing.T) {
	t.Parallel()
	api := &mockSES{}
	api.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))
	s := &SESSender{client: api, from: "x@y.in"}

	err := s.Send(context.Background(), Message{To: "a@b.in", Text: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSendFailed))
	assert.Contains(t, err.Error(), "throttled")
}

func TestLogSender(t *testing.T) {
	t.Parallel()
	assert.NoError(t, LogSender{}.Send(context.Background(), Message{To: "a@b.in", Text: "hi"}))
	assert.Error(t, LogSender{}.Send(context.Background(), Message{Text: "hi"}))
}

func TestTemplates(t *testing.T) {
	t.Parallel()
	m := Invitation("uw@insurer.in", "Ravi", "Acme <Pvt>", "RFQ-20260314-ABCDEF", "https://app/i/abc")
	assert.Equal(t, "Request for quotation RFQ-20260314-ABCDEF from Acme <Pvt>", m.Subject)
	assert.True(t, strings.HasPrefix(m.Text, "Hello Ravi,"))
	assert.Contains(t, m.HTML, "Acme &lt;Pvt&gt;")

	m = Invitation("uw@insurer.in", "", "Acme", "RFQ-1", "l")
	assert.True(t, strings.HasPrefix(m.Text, "Hello,"))

	b := Broadcast("uw@insurer.in", "Acme", "RFQ-1", "Deadline moved")
	assert.Equal(t, "Deadline moved", b.Text)
	assert.Equal(t, "<p>Deadline moved</p>", b.HTML)
}
