// Package dispatch はローンチ前日通知メールの送信ジョブを提供する。
// 確認メールで約束した「ローンチ1日前の通知」を、登録者全員に1回ずつ送る。
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

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

// Config はジョブの設定パラメータ。
type Config struct {
	// LaunchAt はローンチ日時。
	LaunchAt time.Time
	// Lead はローンチの何時間前から送信を始めるか（デフォルト: 24時間）。
	Lead time.Duration
	// Interval はサイクルの実行間隔（デフォルト: 5分）。
	Interval time.Duration
	// BatchSize は1サイクルあたりの最大送信数（デフォルト: 100）。
	BatchSize int
	// SendInterval は1通ごとの送信間隔（デフォルト: 100ミリ秒）。
	SendInterval time.Duration
	// MaxAttempts は1件あたりの最大送信試行回数（デフォルト: 5）。
	MaxAttempts int
}

const defaultInterval = 5 * time.Minute

// DefaultConfig はlaunchAtに対するデフォルト設定を返す。
func DefaultConfig(launchAt time.Time) Config {
	return Config{
		LaunchAt:     launchAt,
		Lead:         24 * time.Hour,
		Interval:     defaultInterval,
		BatchSize:    100,
		SendInterval: 100 * time.Millisecond,
		MaxAttempts:  5,
	}
}

// Job はローンチ前日通知の送信ジョブ。
// 送信期間 [LaunchAt-Lead, LaunchAt) の間だけ、未送信の登録者へ送信する。
// 送信に成功した登録者はreminder_dispatchesに記録し、次のサイクル以降は対象外となる。
// 失敗した登録者はreminder_dispatch_failuresに記録され、次のサイクルでは未試行の登録者より後に回る。
// プロバイダに宛先を拒否された登録者は再送せず、連続エラーにも数えない。
type Job struct {
	repo    repository.DispatchRepository
	mail    TemplateSender
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	config  Config
	now     func() time.Time

	consecutiveErrors int
	backoffUntil      time.Time
}

// NewJob はJobの新しいインスタンスを生成する。
func NewJob(
	repo repository.DispatchRepository,
	mail TemplateSender,
	l *slog.Logger,
	m metrics.MetricsCollector,
	config Config,
) *Job {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Job{
		repo:    repo,
		mail:    mail,
		logger:  l.With(logger.Scope("dispatch")),
		metrics: m,
		config:  config,
		now:     time.Now,
	}
}

// Start はジョブをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context) {
	if j.config.Interval <= 0 {
		j.config.Interval = defaultInterval
	}
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.logger.Info("前日通知ジョブを開始しました",
		slog.Time("launch_at", j.config.LaunchAt),
		slog.Duration("lead", j.config.Lead),
		slog.Duration("interval", j.config.Interval),
		slog.Int("batch_size", j.config.BatchSize),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("前日通知サイクルの実行に失敗しました", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("前日通知ジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("前日通知サイクルの実行に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}

// InWindow はnowが送信期間内かどうかを返す。
func (j *Job) InWindow(now time.Time) bool {
	start := j.config.LaunchAt.Add(-j.config.Lead)
	return !now.Before(start) && now.Before(j.config.LaunchAt)
}

// RunOnce は1回のサイクルを実行する。
func (j *Job) RunOnce(ctx context.Context) error {
	start := j.now()

	if !j.InWindow(start) {
		j.logger.Debug("送信期間外のためスキップします", slog.Time("now", start))
		return nil
	}

	// バックオフ中の場合はスキップ
	if !j.backoffUntil.IsZero() && start.Before(j.backoffUntil) {
		j.logger.Info("前日通知ジョブはバックオフ中のためスキップします",
			slog.Time("backoff_until", j.backoffUntil),
		)
		return nil
	}

	pending, err := j.repo.ListPending(ctx, j.config.BatchSize, j.config.MaxAttempts)
	if err != nil {
		return fmt.Errorf("未送信の通知登録の取得に失敗しました: %w", err)
	}
	if len(pending) == 0 {
		j.logger.Debug("送信対象の通知登録はありません")
		return nil
	}

	var sent, failed int
	for i, reminder := range pending {
		if ctx.Err() != nil {
			j.metrics.RecordDispatchCycle(sent, failed)
			return ctx.Err()
		}

		// 送信間隔（初回は待たない）
		if i > 0 && j.config.SendInterval > 0 {
			select {
			case <-ctx.Done():
				j.metrics.RecordDispatchCycle(sent, failed)
				return ctx.Err()
			case <-time.After(j.config.SendInterval):
			}
		}

		// ローンチを過ぎたら送らない
		if !j.InWindow(j.now()) {
			break
		}

		messageID, err := j.mail.SendTemplate(ctx, mailer.TemplateLaunchEve, reminder.Email)
		if err != nil {
			failed++
			rejected := errors.Is(err, mailer.ErrRejected)
			j.recordFailure(ctx, reminder.ID, err, rejected)
			if rejected {
				j.logger.Warn("宛先が拒否されたため前日通知の送信対象から外します",
					slog.String("reminder_id", reminder.ID),
					slog.String("error", err.Error()),
				)
				continue
			}

			j.consecutiveErrors++
			j.logger.Error("前日通知メールの送信に失敗しました",
				slog.String("reminder_id", reminder.ID),
				slog.Int("consecutive_errors", j.consecutiveErrors),
				slog.String("error", err.Error()),
			)
			if backoff := calculateErrorBackoff(j.consecutiveErrors); backoff > 0 {
				j.backoffUntil = j.now().Add(backoff)
				j.logger.Warn("連続エラーによりバックオフを適用します",
					slog.Int("consecutive_errors", j.consecutiveErrors),
					slog.Duration("backoff_duration", backoff),
				)
				break
			}
			continue
		}

		j.consecutiveErrors = 0
		j.backoffUntil = time.Time{}
		sent++

		dispatch := &model.Dispatch{
			ReminderID: reminder.ID,
			SentAt:     j.now().UTC(),
			MessageID:  messageID,
		}
		if err := j.repo.Record(ctx, dispatch); err != nil {
			// 送信済みだが記録できなかった。次のサイクルで再送される
			j.logger.Error("前日通知の送信記録に失敗しました",
				slog.String("reminder_id", reminder.ID),
				slog.String("message_id", messageID),
				slog.String("error", err.Error()),
			)
		}
	}

	j.metrics.RecordDispatchCycle(sent, failed)
	j.logger.Info("前日通知サイクルが完了しました",
		slog.Int("target", len(pending)),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)

	return nil
}

// recordFailure は送信失敗を記録する。記録に失敗してもサイクルは継続する。
func (j *Job) recordFailure(ctx context.Context, reminderID string, sendErr error, rejected bool) {
	failure := &model.DispatchFailure{
		ReminderID:  reminderID,
		AttemptedAt: j.now().UTC(),
		Reason:      sendErr.Error(),
		Rejected:    rejected,
	}
	if err := j.repo.RecordFailure(ctx, failure); err != nil {
		j.logger.Error("前日通知の送信失敗の記録に失敗しました",
			slog.String("reminder_id", reminderID),
			slog.String("error", err.Error()),
		)
	}
}

// calculateErrorBackoff は連続エラー回数に基づくバックオフ時間を計算する。
// 3回連続: 30分、5回連続: 1時間、10回連続: 6時間。
func calculateErrorBackoff(consecutiveErrors int) time.Duration {
	switch {
	case consecutiveErrors >= 10:
		return 6 * time.Hour
	case consecutiveErrors >= 5:
		return 1 * time.Hour
	case consecutiveErrors >= 3:
		return 30 * time.Minute
	default:
		return 0
	}
}
