package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunSender はMailgun APIでメールを送信する。
type MailgunSender struct {
	client *mailgun.MailgunImpl
	from   Identity
}

// NewMailgunSender はMailgunSenderを生成する。
// apiBaseを指定するとEUリージョン等のエンドポイントに切り替える。
func NewMailgunSender(domain, apiKey, apiBase string, from Identity) *MailgunSender {
	client := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		client.SetAPIBase(apiBase)
	}
	return &MailgunSender{client: client, from: from}
}

// Send はメールを送信し、MailgunのメッセージIDを返す。
func (s *MailgunSender) Send(ctx context.Context, msg Message) (string, error) {
	message := s.client.NewMessage(s.from.String(), msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}
	if msg.Template != "" {
		if err := message.AddTag(msg.Template); err != nil {
			return "", fmt.Errorf("failed to tag mailgun message: %w", err)
		}
	}

	_, messageID, err := s.client.Send(ctx, message)
	if err != nil {
		var respErr *mailgun.UnexpectedResponseError
		if errors.As(err, &respErr) && isRejectedStatus(respErr.Actual) {
			return "", fmt.Errorf("mailgun returned status %d: %w: %w", respErr.Actual, ErrRejected, err)
		}
		return "", fmt.Errorf("mailgun send failed: %w", err)
	}
	return messageID, nil
}

// compile-time interface check
var _ Sender = (*MailgunSender)(nil)
