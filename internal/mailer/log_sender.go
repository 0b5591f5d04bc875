package mailer

import (
	"context"
	"log/slog"

	"github.com/hitoshi/launchwatch/internal/logger"
)

// LogSender はメールを送信せずログに記録する。開発環境用。
type LogSender struct {
	from   Identity
	logger *slog.Logger
}

// NewLogSender はLogSenderを生成する。
func NewLogSender(from Identity, l *slog.Logger) *LogSender {
	return &LogSender{from: from, logger: l.With(logger.Scope("mailer.log"))}
}

// Send はメールの概要をINFOで記録し、成功を返す。
func (s *LogSender) Send(_ context.Context, msg Message) (string, error) {
	s.logger.Info("email not delivered (log provider)",
		slog.String("from", s.from.String()),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("template", msg.Template),
		slog.Int("text_length", len(msg.Text)),
	)
	return "", nil
}

// compile-time interface check
var _ Sender = (*LogSender)(nil)
