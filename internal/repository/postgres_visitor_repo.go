package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/launchwatch/internal/model"
)

// PostgresVisitorRepo はPostgreSQLを使用した訪問記録リポジトリ。
type PostgresVisitorRepo struct {
	db *sql.DB
}

// NewPostgresVisitorRepo はPostgresVisitorRepoを生成する。
func NewPostgresVisitorRepo(db *sql.DB) *PostgresVisitorRepo {
	return &PostgresVisitorRepo{db: db}
}

// upsertVisitorSQL は「INSERTを試み、IPが衝突したらUPDATEする」を1文で行う。
// 読み取ってから分岐する方式と異なり、同一IPからの同時リクエストでも
// ユニーク制約によって1レコードに収束する。
// country/city/user_agentは新しい値がNULLでない場合のみ上書きする。
// last_visitは時刻が巻き戻らないようGREATESTで更新する。
// xmax = 0 はINSERTされた行であることを示す。
const upsertVisitorSQL = `
INSERT INTO visitor_analytics
    (id, ip_address, country, city, visit_count, first_visit, last_visit, user_agent)
VALUES ($1, $2, $3, $4, 1, $5, $5, $6)
ON CONFLICT (ip_address) DO UPDATE SET
    visit_count = visitor_analytics.visit_count + 1,
    last_visit  = GREATEST(visitor_analytics.last_visit, EXCLUDED.last_visit),
    country     = COALESCE(EXCLUDED.country, visitor_analytics.country),
    city        = COALESCE(EXCLUDED.city, visitor_analytics.city),
    user_agent  = COALESCE(EXCLUDED.user_agent, visitor_analytics.user_agent)
RETURNING id, ip_address, country, city, visit_count, first_visit, last_visit, user_agent, (xmax = 0)`

// Upsert は訪問を1件記録する。新規作成された場合はcreated=trueを返す。
func (r *PostgresVisitorRepo) Upsert(ctx context.Context, hit *model.VisitorHit) (*model.Visitor, bool, error) {
	seenAt := hit.SeenAt
	if seenAt.IsZero() {
		seenAt = time.Now().UTC()
	}

	v := &model.Visitor{}
	var country, city, userAgent sql.NullString
	var created bool

	err := r.db.QueryRowContext(ctx, upsertVisitorSQL,
		uuid.New().String(), hit.IPAddress,
		hit.Country, hit.City,
		seenAt, hit.UserAgent,
	).Scan(
		&v.ID, &v.IPAddress,
		&country, &city,
		&v.VisitCount, &v.FirstVisit, &v.LastVisit,
		&userAgent, &created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert visitor: %w", err)
	}

	v.Country = nullStringPtr(country)
	v.City = nullStringPtr(city)
	v.UserAgent = nullStringPtr(userAgent)

	return v, created, nil
}

// nullStringPtr はsql.NullStringを文字列ポインタに変換する。
func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// compile-time interface check
var _ VisitorRepository = (*PostgresVisitorRepo)(nil)
