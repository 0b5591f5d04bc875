// Package analytics はエンゲージメントダッシュボード向けの集計を提供する。
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/launchwatch/internal/model"
	"github.com/hitoshi/launchwatch/internal/repository"
)

const (
	// DefaultLimit は訪問者一覧のデフォルト件数。
	DefaultLimit = 100
	// MaxLimit は訪問者一覧の最大件数。
	MaxLimit = 500
	// topCountriesLimit は国別集計の表示件数。
	topCountriesLimit = 10
)

// VisitorRow はダッシュボードに表示する訪問者1件。
type VisitorRow struct {
	ID         string    `json:"id"`
	IPAddress  string    `json:"ip_address"`
	Country    *string   `json:"country"`
	City       *string   `json:"city"`
	VisitCount int       `json:"visit_count"`
	FirstVisit time.Time `json:"first_visit"`
	LastVisit  time.Time `json:"last_visit"`
	UserAgent  *string   `json:"user_agent"`
}

// Summary はダッシュボード全体の集計結果。
type Summary struct {
	TotalVisits    int64                 `json:"total_visits"`
	UniqueVisitors int64                 `json:"unique_visitors"`
	TopCountries   []model.CountryVisits `json:"top_countries"`
	Visitors       []VisitorRow          `json:"visitors"`
	Limit          int                   `json:"limit"`
	Offset         int                   `json:"offset"`
}

// Service は集計のサービス層。
type Service struct {
	repo repository.AnalyticsRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.AnalyticsRepository) *Service {
	return &Service{repo: repo}
}

// ClampLimit はlimitを1..MaxLimitに収める。0以下はDefaultLimitとする。
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Summary は総訪問数、ユニーク訪問者数、国別上位、訪問者一覧を返す。
// 集計はすべてデータベース側で行う。
func (s *Service) Summary(ctx context.Context, limit, offset int) (*Summary, error) {
	limit = ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("訪問数の集計に失敗しました: %w", err)
	}

	countries, err := s.repo.TopCountries(ctx, topCountriesLimit)
	if err != nil {
		return nil, fmt.Errorf("国別集計に失敗しました: %w", err)
	}

	visitors, err := s.repo.ListVisitors(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("訪問者一覧の取得に失敗しました: %w", err)
	}

	rows := make([]VisitorRow, len(visitors))
	for i, v := range visitors {
		rows[i] = VisitorRow{
			ID:         v.ID,
			IPAddress:  v.IPAddress,
			Country:    v.Country,
			City:       v.City,
			VisitCount: v.VisitCount,
			FirstVisit: v.FirstVisit,
			LastVisit:  v.LastVisit,
			UserAgent:  v.UserAgent,
		}
	}
	if countries == nil {
		countries = []model.CountryVisits{}
	}

	return &Summary{
		TotalVisits:    totals.TotalVisits,
		UniqueVisitors: totals.UniqueVisitors,
		TopCountries:   countries,
		Visitors:       rows,
		Limit:          limit,
		Offset:         offset,
	}, nil
}
