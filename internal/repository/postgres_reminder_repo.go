package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/launchwatch/internal/model"
)

// PostgresReminderRepo はPostgreSQLを使用したローンチ通知登録リポジトリ。
// ReminderRepositoryとDispatchRepositoryの両方を実装する。
type PostgresReminderRepo struct {
	db *sql.DB
}

// NewPostgresReminderRepo はPostgresReminderRepoを生成する。
func NewPostgresReminderRepo(db *sql.DB) *PostgresReminderRepo {
	return &PostgresReminderRepo{db: db}
}

// Create は通知登録を作成する。
// IDと作成日時が未設定の場合はここで採番する。
// メールアドレスのユニーク制約に違反した場合はErrDuplicateを返す。
func (r *PostgresReminderRepo) Create(ctx context.Context, reminder *model.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_reminders (id, email, created_at) VALUES ($1, $2, $3)`,
		reminder.ID, reminder.Email, reminder.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert email reminder: %w", err)
	}

	return nil
}

// ListPending は前日通知が未送信の登録を最大limit件返す。
// 失敗回数の少ない順、同数ならcreated_at昇順に並べる。
// 宛先を拒否された登録と、失敗回数がmaxAttempts以上の登録は含めない。
func (r *PostgresReminderRepo) ListPending(ctx context.Context, limit, maxAttempts int) ([]*model.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT er.id, er.email, er.created_at
		 FROM email_reminders er
		 LEFT JOIN reminder_dispatches rd ON rd.reminder_id = er.id
		 LEFT JOIN reminder_dispatch_failures rf ON rf.reminder_id = er.id
		 WHERE rd.reminder_id IS NULL
		   AND NOT COALESCE(rf.rejected, FALSE)
		   AND COALESCE(rf.attempts, 0) < $2
		 ORDER BY COALESCE(rf.attempts, 0) ASC, er.created_at ASC
		 LIMIT $1`,
		limit, maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*model.Reminder
	for rows.Next() {
		reminder := &model.Reminder{}
		if err := rows.Scan(&reminder.ID, &reminder.Email, &reminder.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending reminders: %w", err)
	}

	return reminders, nil
}

// Record は送信済みとして記録する。記録済みの場合は何もしない。
func (r *PostgresReminderRepo) Record(ctx context.Context, dispatch *model.Dispatch) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminder_dispatches (reminder_id, sent_at, message_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (reminder_id) DO NOTHING`,
		dispatch.ReminderID, dispatch.SentAt, model.StringPtr(dispatch.MessageID),
	)
	if err != nil {
		return fmt.Errorf("failed to record reminder dispatch: %w", err)
	}
	return nil
}

// RecordFailure は送信失敗を記録し、失敗回数を1加算する。
func (r *PostgresReminderRepo) RecordFailure(ctx context.Context, failure *model.DispatchFailure) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminder_dispatch_failures (reminder_id, attempts, rejected, last_error, last_attempt_at)
		 VALUES ($1, 1, $2, $3, $4)
		 ON CONFLICT (reminder_id) DO UPDATE SET
		     attempts = reminder_dispatch_failures.attempts + 1,
		     rejected = reminder_dispatch_failures.rejected OR EXCLUDED.rejected,
		     last_error = EXCLUDED.last_error,
		     last_attempt_at = EXCLUDED.last_attempt_at`,
		failure.ReminderID, failure.Rejected, model.StringPtr(failure.Reason), failure.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record reminder dispatch failure: %w", err)
	}
	return nil
}

// compile-time interface check
var (
	_ ReminderRepository = (*PostgresReminderRepo)(nil)
	_ DispatchRepository = (*PostgresReminderRepo)(nil)
)
