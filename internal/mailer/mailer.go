package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/launchwatch/internal/logger"
	"github.com/hitoshi/launchwatch/internal/metrics"
)

// Mailer はテンプレートの描画と送信をまとめ、タイムアウトとメトリクスを適用する。
type Mailer struct {
	sender    Sender
	templates *Templates
	timeout   time.Duration
	logger    *slog.Logger
	metrics   metrics.MetricsCollector
}

// New はMailerを生成する。timeoutは1通あたりの送信上限。
func New(sender Sender, templates *Templates, timeout time.Duration, l *slog.Logger, m metrics.MetricsCollector) *Mailer {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Mailer{
		sender:    sender,
		templates: templates,
		timeout:   timeout,
		logger:    l.With(logger.Scope("mailer")),
		metrics:   m,
	}
}

// SendTemplate はテンプレートnameのメールをtoへ送信し、メッセージIDを返す。
func (m *Mailer) SendTemplate(ctx context.Context, name, to string) (string, error) {
	msg, err := m.templates.Render(name, to)
	if err != nil {
		m.metrics.RecordEmailSend(name, metrics.EmailFailed)
		return "", err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	messageID, err := m.sender.Send(ctx, msg)
	if err != nil {
		m.metrics.RecordEmailSend(name, metrics.EmailFailed)
		return "", fmt.Errorf("failed to send %s email: %w", name, err)
	}

	m.metrics.RecordEmailSend(name, metrics.EmailSent)
	m.logger.Info("email sent",
		slog.String("template", name),
		slog.String("message_id", messageID),
	)
	return messageID, nil
}
