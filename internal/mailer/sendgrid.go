package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender はSendGrid v3 APIでメールを送信する。
type SendGridSender struct {
	client *sendgrid.Client
	from   Identity
}

// NewSendGridSender はSendGridSenderを生成する。
func NewSendGridSender(apiKey string, from Identity) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
	}
}

// Send はメールを送信し、X-Message-Idヘッダの値を返す。
// SendGridは受付時に202を返す。2xx以外はエラーとして扱う。
func (s *SendGridSender) Send(ctx context.Context, msg Message) (string, error) {
	from := mail.NewEmail(s.from.Name, s.from.Address)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)
	if msg.Template != "" {
		message.AddCategories(msg.Template)
	}

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("sendgrid send failed: %w", err)
	}
	if isRejectedStatus(resp.StatusCode) {
		return "", fmt.Errorf("sendgrid returned status %d: %w: %s", resp.StatusCode, ErrRejected, resp.Body)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

// compile-time interface check
var _ Sender = (*SendGridSender)(nil)
