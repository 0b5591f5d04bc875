// Package visitor は訪問記録のドメインロジックを提供する。
package visitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/launchwatch/internal/geo"
	"github.com/hitoshi/launchwatch/internal/logger"
	"github.com/hitoshi/launchwatch/internal/metrics"
	"github.com/hitoshi/launchwatch/internal/model"
	"github.com/hitoshi/launchwatch/internal/repository"
	"github.com/hitoshi/launchwatch/internal/security"
)

// maxUserAgentBytes は保存するUser-Agentの最大バイト数。
const maxUserAgentBytes = 512

// ReasonNoIP はクライアントIPが取得できなかったことを示す。
const ReasonNoIP = "no-ip"

// VisitInput は1回の訪問の入力。
type VisitInput struct {
	IP        string
	UserAgent *string
}

// VisitResult は訪問記録の結果。
// Recorded=falseの場合はReasonに理由が入り、DBには触れていない。
type VisitResult struct {
	Recorded   bool
	Reason     string
	ID         string
	VisitCount int
	Created    bool
}

// Service は訪問記録のサービス層。
type Service struct {
	repo      repository.VisitorRepository
	locator   geo.Locator
	sanitizer *security.TextSanitizer
	logger    *slog.Logger
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.VisitorRepository,
	locator geo.Locator,
	l *slog.Logger,
	m metrics.MetricsCollector,
) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		repo:      repo,
		locator:   locator,
		sanitizer: security.NewTextSanitizer(),
		logger:    l.With(logger.Scope("visitor")),
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordVisit は訪問を1件記録する。
// IPが空の場合は何もせずReasonNoIPを返す。
// 位置情報は解決できなくても記録を続行する。永続化の失敗のみエラーとして返す。
func (s *Service) RecordVisit(ctx context.Context, in VisitInput) (*VisitResult, error) {
	ip := strings.TrimSpace(in.IP)
	if ip == "" {
		s.metrics.RecordVisitWithoutIP()
		return &VisitResult{Recorded: false, Reason: ReasonNoIP}, nil
	}

	loc := s.locator.Lookup(ctx, ip)

	hit := &model.VisitorHit{
		IPAddress: ip,
		Country:   loc.Country,
		City:      loc.City,
		UserAgent: s.normalizeUserAgent(in.UserAgent),
		SeenAt:    s.now(),
	}

	v, created, err := s.repo.Upsert(ctx, hit)
	if err != nil {
		return nil, fmt.Errorf("訪問の記録に失敗しました: %w", err)
	}

	s.metrics.RecordVisit(created)
	s.logger.Debug("visit recorded",
		slog.String("visitor_id", v.ID),
		slog.Int("visit_count", v.VisitCount),
		slog.Bool("created", created),
	)

	return &VisitResult{
		Recorded:   true,
		ID:         v.ID,
		VisitCount: v.VisitCount,
		Created:    created,
	}, nil
}

// normalizeUserAgent はUser-Agentを表示しても安全な形にして長さを制限する。
// 空白のみの場合はnilを返し、既存の値を上書きしない。
func (s *Service) normalizeUserAgent(ua *string) *string {
	if ua == nil {
		return nil
	}
	return model.StringPtr(s.sanitizer.SafeText(*ua, maxUserAgentBytes))
}
