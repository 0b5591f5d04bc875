// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/launchwatch/internal/model"
)

// VisitorRepository は訪問記録の永続化インターフェース。
type VisitorRepository interface {
	// Upsert は訪問を1件記録する。
	// 未登録のIPであればvisit_count=1で作成し、登録済みであればvisit_countを1加算する。
	// hitのnilフィールドは既存の値を維持する。
	// 戻り値のboolは新規作成された場合にtrueとなる。
	Upsert(ctx context.Context, hit *model.VisitorHit) (*model.Visitor, bool, error)
}

// ReminderRepository はローンチ通知登録の永続化インターフェース。
type ReminderRepository interface {
	// Create は通知登録を作成する。
	// メールアドレスが登録済みの場合はErrDuplicateを返す。
	Create(ctx context.Context, reminder *model.Reminder) error
}

// DispatchRepository はローンチ前日通知の送信管理インターフェース。
type DispatchRepository interface {
	// ListPending は前日通知が未送信の登録を最大limit件返す。
	// 失敗回数の少ない順に並べ、拒否済みまたは失敗回数がmaxAttempts以上の登録は除く。
	ListPending(ctx context.Context, limit, maxAttempts int) ([]*model.Reminder, error)

	// Record は送信済みとして記録する。記録済みの場合は何もしない。
	Record(ctx context.Context, dispatch *model.Dispatch) error

	// RecordFailure は送信失敗を記録し、失敗回数を1加算する。
	RecordFailure(ctx context.Context, failure *model.DispatchFailure) error
}

// AnalyticsRepository はエンゲージメント集計の読み取り専用インターフェース。
type AnalyticsRepository interface {
	// Totals は総訪問数とユニーク訪問者数を返す。
	Totals(ctx context.Context) (*model.VisitTotals, error)

	// TopCountries は国別訪問数を降順で最大limit件返す。国が不明なものは"Unknown"に集約する。
	TopCountries(ctx context.Context, limit int) ([]model.CountryVisits, error)

	// ListVisitors は訪問記録をlast_visit降順で返す。
	ListVisitors(ctx context.Context, limit, offset int) ([]*model.Visitor, error)
}
