package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/launchwatch/internal/middleware"
	"github.com/hitoshi/launchwatch/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 訪問記録
	VisitService VisitRecorder

	// 通知登録
	ReminderService ReminderRegistrar

	// カウントダウン
	Countdown CountdownSource
	LiveURL   string

	// ダッシュボード
	AnalyticsService SummaryProvider
	DashboardToken   string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
// /functions/v1/* は既存ランディングページの呼び出し先と同じパスで、/api/* と同じハンドラーを共有する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := orDefaultLogger(deps.Logger)
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	// プリフライトはルーティング前に応答する必要があるため最上位に適用する
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError())
	})

	visitHandler := NewVisitHandler(deps.VisitService, logger)
	reminderHandler := NewReminderHandler(deps.ReminderService, logger)
	countdownHandler := NewCountdownHandler(deps.Countdown, deps.LiveURL)
	engagementHandler := NewEngagementHandler(deps.AnalyticsService, deps.DashboardToken, logger)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker, logger))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 公開API ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		signup := func(h http.HandlerFunc) http.Handler {
			if deps.RateLimiter == nil {
				return h
			}
			return deps.RateLimiter.SignupMiddleware()(h)
		}

		// 訪問記録はメソッドを問わない
		r.HandleFunc("/functions/v1/log-visit", visitHandler.LogVisit)
		r.HandleFunc("/api/visits", visitHandler.LogVisit)

		r.Method(http.MethodPost, "/functions/v1/store-email-reminder", signup(reminderHandler.Register))
		r.Method(http.MethodPost, "/api/reminders", signup(reminderHandler.Register))

		r.Get("/api/countdown", countdownHandler.Get)
		r.Get("/api/engagements", engagementHandler.Summary)
	})

	return r
}
