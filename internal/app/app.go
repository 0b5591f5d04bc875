package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/launchwatch/internal/analytics"
	"github.com/hitoshi/launchwatch/internal/clientip"
	"github.com/hitoshi/launchwatch/internal/config"
	"github.com/hitoshi/launchwatch/internal/countdown"
	"github.com/hitoshi/launchwatch/internal/database"
	"github.com/hitoshi/launchwatch/internal/geo"
	"github.com/hitoshi/launchwatch/internal/handler"
	"github.com/hitoshi/launchwatch/internal/logger"
	"github.com/hitoshi/launchwatch/internal/mailer"
	"github.com/hitoshi/launchwatch/internal/metrics"
	"github.com/hitoshi/launchwatch/internal/middleware"
	"github.com/hitoshi/launchwatch/internal/reminder"
	"github.com/hitoshi/launchwatch/internal/repository"
	"github.com/hitoshi/launchwatch/internal/security"
	"github.com/hitoshi/launchwatch/internal/visitor"
	"github.com/hitoshi/launchwatch/internal/worker/dispatch"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	if cmd == CommandHelp {
		if w == nil {
			w = os.Stdout
		}
		_, err := io.WriteString(w, Usage())
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Time("launch_at", cfg.LaunchAt),
		slog.String("email_provider", cfg.EmailProvider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// newMailer は設定されたプロバイダとテンプレートからMailerを組み立てる。
func newMailer(cfg *config.Config, l *slog.Logger, m metrics.MetricsCollector) (*mailer.Mailer, error) {
	sender, err := mailer.NewSender(cfg, l)
	if err != nil {
		return nil, err
	}
	templates, err := mailer.NewTemplates(mailer.DefaultBrand(cfg.LaunchAt, cfg.LiveURL, cfg.EmailFromAddress))
	if err != nil {
		return nil, err
	}
	return mailer.New(sender, templates, cfg.EmailSendTimeout, l, m), nil
}

// newLocator は位置情報の検索器を組み立てる。
// REDIS_URLが設定されていればキャッシュを前段に置く。Redisに接続できない場合はキャッシュなしで続行する。
func newLocator(ctx context.Context, cfg *config.Config, l *slog.Logger, m metrics.MetricsCollector) (geo.Locator, func(), error) {
	if err := security.ValidateEndpoint(cfg.GeoEndpoint); err != nil {
		return nil, nil, fmt.Errorf("invalid GEO_ENDPOINT: %w", err)
	}

	geoLogger := l.With(logger.Scope("geo"))
	client := geo.NewClient(security.NewSafeClient(cfg.GeoTimeout), cfg.GeoEndpoint, cfg.GeoTimeout, geoLogger, m)

	if cfg.RedisURL == "" {
		return client, func() {}, nil
	}

	rdb, err := database.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		geoLogger.Warn("geolocation cache disabled", slog.String("error", err.Error()))
		return client, func() {}, nil
	}

	geoLogger.Info("geolocation cache enabled", slog.Duration("ttl", cfg.GeoCacheTTL))
	locator := geo.NewCachedLocator(client, geo.NewRedisCache(rdb), cfg.GeoCacheTTL, geoLogger, m)
	return locator, func() { rdb.Close() }, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	l := slog.Default()

	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	l.Info("database connection established")

	// 2. メトリクス
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// 3. リポジトリの初期化
	visitorRepo := repository.NewPostgresVisitorRepo(db)
	reminderRepo := repository.NewPostgresReminderRepo(db)
	analyticsRepo := repository.NewPostgresAnalyticsRepo(db)

	// 4. 外部サービス
	locator, closeLocator, err := newLocator(ctx, cfg, l, collector)
	if err != nil {
		return err
	}
	defer closeLocator()

	mail, err := newMailer(cfg, l, collector)
	if err != nil {
		return fmt.Errorf("failed to set up mailer: %w", err)
	}

	// 5. ドメインサービスの初期化
	visitService := visitor.NewService(visitorRepo, locator, l, collector)
	reminderService := reminder.NewService(reminderRepo, mail, l, collector)
	analyticsService := analytics.NewService(analyticsRepo)

	clock := countdown.NewClock(cfg.LaunchAt)
	go clock.Run(ctx, cfg.CountdownTick, func(st countdown.State) {
		if st.Live {
			l.Info("launch is live", slog.Time("launch_at", cfg.LaunchAt), slog.String("live_url", cfg.LiveURL))
		}
	})

	// 6. ルーターの構築
	rlConfig := middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitSignup)
	rlConfig.TrustedProxies, err = clientip.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}
	rateLimiter := middleware.NewRateLimiter(rlConfig, l)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             l,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		HealthChecker:      db,
		MetricsHandler:     metrics.Handler(prometheus.DefaultGatherer),
		VisitService:       visitService,
		ReminderService:    reminderService,
		Countdown:          clock,
		LiveURL:            cfg.LiveURL,
		AnalyticsService:   analyticsService,
		DashboardToken:     cfg.DashboardToken,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}

	l.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	l.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、ローンチ前日通知ジョブを起動する。ctxがキャンセルされると停止する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	l := slog.Default()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	l.Info("database connection established (worker)")

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	mail, err := newMailer(cfg, l, collector)
	if err != nil {
		return fmt.Errorf("failed to set up mailer: %w", err)
	}

	jobCfg := dispatch.DefaultConfig(cfg.LaunchAt)
	if cfg.ReminderLead > 0 {
		jobCfg.Lead = cfg.ReminderLead
	}
	if cfg.DispatchInterval > 0 {
		jobCfg.Interval = cfg.DispatchInterval
	}
	if cfg.DispatchBatchSize > 0 {
		jobCfg.BatchSize = cfg.DispatchBatchSize
	}
	if cfg.DispatchMaxAttempts > 0 {
		jobCfg.MaxAttempts = cfg.DispatchMaxAttempts
	}
	job := dispatch.NewJob(repository.NewPostgresReminderRepo(db), mail, l, collector, jobCfg)

	l.Info("worker starting",
		slog.Time("window_start", jobCfg.LaunchAt.Add(-jobCfg.Lead)),
		slog.Time("window_end", jobCfg.LaunchAt),
	)

	// ブロッキング
	job.Start(ctx)

	l.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
