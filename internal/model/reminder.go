package model

import "time"

// Reminder はローンチ通知の登録を表す。
// 作成後に更新・削除されることはない。
type Reminder struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatch はローンチ前日通知の送信記録を表す。
// remindersテーブルを不変に保つため、送信状況は別テーブルで管理する。
type Dispatch struct {
	ReminderID string
	SentAt     time.Time
	MessageID  string
}

// DispatchFailure はローンチ前日通知の送信失敗を表す。
// Rejectedはプロバイダが宛先を恒久的に拒否したことを示し、以降は送信対象から外す。
type DispatchFailure struct {
	ReminderID  string
	AttemptedAt time.Time
	Reason      string
	Rejected    bool
}
