// Package mailer はトランザクションメールの組み立てと送信を提供する。
// 送信は外部プロバイダ（Mailgun, SendGrid）に委譲し、独自の配信処理は持たない。
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/launchwatch/internal/config"
)

// Message は送信する1通のメール。
type Message struct {
	To       string
	Subject  string
	HTML     string
	Text     string
	Template string
}

// Sender はメール送信プロバイダの抽象。
// 成功時はプロバイダが採番したメッセージIDを返す（ない場合は空文字列）。
type Sender interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// Identity は差出人。
type Identity struct {
	Name    string
	Address string
}

// String は "Name <address>" 形式の差出人を返す。
func (i Identity) String() string {
	if i.Name == "" {
		return i.Address
	}
	return fmt.Sprintf("%s <%s>", i.Name, i.Address)
}

// NewSender はEMAIL_PROVIDERに応じたSenderを生成する。
func NewSender(cfg *config.Config, logger *slog.Logger) (Sender, error) {
	from := Identity{Name: cfg.EmailFromName, Address: cfg.EmailFromAddress}

	switch cfg.EmailProvider {
	case "mailgun":
		return NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase, from), nil
	case "sendgrid":
		return NewSendGridSender(cfg.SendGridAPIKey, from), nil
	case "log", "":
		return NewLogSender(from, logger), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.EmailProvider)
	}
}
