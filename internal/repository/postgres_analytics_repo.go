package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/launchwatch/internal/model"
)

// PostgresAnalyticsRepo はPostgreSQLを使用したエンゲージメント集計リポジトリ。
// 集計はすべてSQL側で行い、全行をアプリケーションに読み込まない。
type PostgresAnalyticsRepo struct {
	db *sql.DB
}

// NewPostgresAnalyticsRepo はPostgresAnalyticsRepoを生成する。
func NewPostgresAnalyticsRepo(db *sql.DB) *PostgresAnalyticsRepo {
	return &PostgresAnalyticsRepo{db: db}
}

// Totals は総訪問数とユニーク訪問者数を返す。
func (r *PostgresAnalyticsRepo) Totals(ctx context.Context) (*model.VisitTotals, error) {
	totals := &model.VisitTotals{}
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(visit_count), 0), COUNT(*) FROM visitor_analytics`,
	).Scan(&totals.TotalVisits, &totals.UniqueVisitors)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate visit totals: %w", err)
	}
	return totals, nil
}

// TopCountries は国別訪問数を降順で最大limit件返す。
// 国が不明（NULLまたは空文字）のレコードは"Unknown"に集約する。
func (r *PostgresAnalyticsRepo) TopCountries(ctx context.Context, limit int) ([]model.CountryVisits, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT COALESCE(NULLIF(country, ''), 'Unknown') AS country_name, SUM(visit_count) AS visits
		 FROM visitor_analytics
		 GROUP BY country_name
		 ORDER BY visits DESC, country_name ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate visits by country: %w", err)
	}
	defer rows.Close()

	countries := make([]model.CountryVisits, 0, limit)
	for rows.Next() {
		var cv model.CountryVisits
		if err := rows.Scan(&cv.Country, &cv.Visits); err != nil {
			return nil, fmt.Errorf("failed to scan country visits: %w", err)
		}
		countries = append(countries, cv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate country visits: %w", err)
	}

	return countries, nil
}

// ListVisitors は訪問記録をlast_visit降順で返す。
func (r *PostgresAnalyticsRepo) ListVisitors(ctx context.Context, limit, offset int) ([]*model.Visitor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ip_address, country, city, visit_count, first_visit, last_visit, user_agent
		 FROM visitor_analytics
		 ORDER BY last_visit DESC, id ASC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	defer rows.Close()

	visitors := make([]*model.Visitor, 0, limit)
	for rows.Next() {
		v := &model.Visitor{}
		var country, city, userAgent sql.NullString
		if err := rows.Scan(
			&v.ID, &v.IPAddress,
			&country, &city,
			&v.VisitCount, &v.FirstVisit, &v.LastVisit,
			&userAgent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan visitor: %w", err)
		}
		v.Country = nullStringPtr(country)
		v.City = nullStringPtr(city)
		v.UserAgent = nullStringPtr(userAgent)
		visitors = append(visitors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visitors: %w", err)
	}

	return visitors, nil
}

// compile-time interface check
var _ AnalyticsRepository = (*PostgresAnalyticsRepo)(nil)
