package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/launchwatch/internal/clientip"
)

// DefaultLaunchAt はローンチ日時のデフォルト値（2025-11-01 10:00 EAT）。
const DefaultLaunchAt = "2025-11-01T07:00:00Z"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis（任意。未設定の場合はジオロケーションキャッシュを使用しない）
	RedisURL string

	// Launch
	LaunchAt      time.Time
	LiveURL       string
	ReminderLead  time.Duration
	CountdownTick time.Duration

	// Geolocation
	GeoEndpoint string
	GeoTimeout  time.Duration
	GeoCacheTTL time.Duration

	// Email
	EmailProvider    string
	EmailFromName    string
	EmailFromAddress string
	EmailSendTimeout time.Duration
	MailgunDomain    string
	MailgunAPIKey    string
	MailgunAPIBase   string
	SendGridAPIKey   string

	// Dispatch worker
	DispatchInterval    time.Duration
	DispatchBatchSize   int
	DispatchMaxAttempts int

	// Dashboard
	DashboardToken string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitSignup  int
	// TrustedProxies は転送ヘッダを信頼する接続元（CIDRまたはアドレス）
	TrustedProxies []string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigins []string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	launchAt, err := time.Parse(time.RFC3339, getEnvString("LAUNCH_AT", DefaultLaunchAt))
	if err != nil {
		return nil, fmt.Errorf("invalid LAUNCH_AT: %w", err)
	}
	cfg.LaunchAt = launchAt.UTC()

	cfg.EmailProvider = strings.ToLower(getEnvString("EMAIL_PROVIDER", "log"))
	switch cfg.EmailProvider {
	case "log", "mailgun", "sendgrid":
	default:
		return nil, fmt.Errorf("unsupported EMAIL_PROVIDER: %s", cfg.EmailProvider)
	}

	// 0以下だとティッカーや送信期間が成立しないため、正の値のみ受け付ける
	if cfg.ReminderLead, err = getEnvPositiveDuration("REMINDER_LEAD", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CountdownTick, err = getEnvPositiveDuration("COUNTDOWN_TICK", time.Second); err != nil {
		return nil, err
	}
	if cfg.DispatchInterval, err = getEnvPositiveDuration("DISPATCH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	// Optional fields with defaults
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.LiveURL = getEnvString("LIVE_URL", "https://febexgroup.netlify.app")
	cfg.GeoEndpoint = getEnvString("GEO_ENDPOINT", "https://ipapi.co")
	cfg.GeoTimeout = getEnvDuration("GEO_TIMEOUT", 3*time.Second)
	cfg.GeoCacheTTL = getEnvDuration("GEO_CACHE_TTL", 24*time.Hour)
	cfg.EmailFromName = getEnvString("EMAIL_FROM_NAME", "FEBEX Group")
	cfg.EmailFromAddress = getEnvString("EMAIL_FROM_ADDRESS", "info@febexgroup.com")
	cfg.EmailSendTimeout = getEnvDuration("EMAIL_SEND_TIMEOUT", 10*time.Second)
	cfg.MailgunDomain = getEnvString("MAILGUN_DOMAIN", "")
	cfg.MailgunAPIKey = getEnvString("MAILGUN_API_KEY", "")
	cfg.MailgunAPIBase = getEnvString("MAILGUN_API_BASE", "")
	cfg.SendGridAPIKey = getEnvString("SENDGRID_API_KEY", "")
	cfg.DispatchBatchSize = getEnvInt("DISPATCH_BATCH_SIZE", 100)
	cfg.DispatchMaxAttempts = getEnvInt("DISPATCH_MAX_ATTEMPTS", 5)
	cfg.DashboardToken = getEnvString("DASHBOARD_TOKEN", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSignup = getEnvInt("RATE_LIMIT_SIGNUP", 10)
	cfg.TrustedProxies = getEnvList("TRUSTED_PROXIES", clientip.DefaultTrustedProxies)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"})

	// プロバイダごとの必須項目
	switch cfg.EmailProvider {
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			missing = append(missing, "MAILGUN_DOMAIN", "MAILGUN_API_KEY")
		}
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			missing = append(missing, "SENDGRID_API_KEY")
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if _, err := clientip.ParseTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvPositiveDuration は正の期間を表す環境変数を返す。
// 未設定または解析できない場合はdefaultValを返し、0以下の場合はエラーを返す。
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d := getEnvDuration(key, defaultVal)
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, d)
	}
	return d, nil
}

// getEnvList はカンマ区切りの環境変数をスライスとして返す。空要素は除外する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
