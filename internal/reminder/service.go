// Package reminder はローンチ通知登録のドメインロジックを提供する。
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/launchwatch/internal/logger"
	"github.com/hitoshi/launchwatch/internal/mailer"
	"github.com/hitoshi/launchwatch/internal/metrics"
	"github.com/hitoshi/launchwatch/internal/model"
	"github.com/hitoshi/launchwatch/internal/repository"
)

// TemplateSender はテンプレートメールの送信を行う。
type TemplateSender interface {
	SendTemplate(ctx context.Context, name, to string) (messageID string, err error)
}

// RegistrationResult は登録の結果。
// Persisted/AlreadyRegistered/Reminderが主結果で、レスポンスを決める。
// Notified/MessageID/NotifyErrorは確認メールの送信結果で、レスポンスには影響しない。
type RegistrationResult struct {
	Persisted         bool
	AlreadyRegistered bool
	Reminder          *model.Reminder

	Notified    bool
	MessageID   string
	NotifyError error
}

// Service はローンチ通知登録のサービス層。
type Service struct {
	repo    repository.ReminderRepository
	mail    TemplateSender
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ReminderRepository, mail TemplateSender, l *slog.Logger, m metrics.MetricsCollector) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		repo:    repo,
		mail:    mail,
		logger:  l.With(logger.Scope("reminder")),
		metrics: m,
	}
}

// ValidateEmail は前後の空白を除いたアドレスを返す。
// 空、または"@"を含まない場合はINVALID_EMAILエラーを返す。これ以上の検証は行わない。
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", model.NewInvalidEmailError()
	}
	return email, nil
}

// Register はメールアドレスを登録し、確認メールを送信する。
// 登録済みのアドレスは成功として扱い、確認メールは送らない。
// 確認メールの失敗はログに記録するのみで、エラーとしては返さない。
func (s *Service) Register(ctx context.Context, email string) (*RegistrationResult, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		s.metrics.RecordReminder(metrics.ReminderInvalid)
		return nil, err
	}

	reminder := &model.Reminder{Email: email}
	if err := s.repo.Create(ctx, reminder); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordReminder(metrics.ReminderDuplicate)
			return &RegistrationResult{AlreadyRegistered: true}, nil
		}
		return nil, fmt.Errorf("通知登録の保存に失敗しました: %w", err)
	}

	s.metrics.RecordReminder(metrics.ReminderRegistered)
	s.logger.Info("email reminder stored", slog.String("reminder_id", reminder.ID))

	result := &RegistrationResult{Persisted: true, Reminder: reminder}

	messageID, err := s.mail.SendTemplate(ctx, mailer.TemplateConfirmation, reminder.Email)
	if err != nil {
		s.logger.Error("failed to send confirmation email",
			slog.String("reminder_id", reminder.ID),
			slog.String("error", err.Error()),
		)
		result.NotifyError = err
		return result, nil
	}

	result.Notified = true
	result.MessageID = messageID
	return result, nil
}
