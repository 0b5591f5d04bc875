// Package geo はIPアドレスから国・都市を解決する位置情報検索を提供する。
// 検索に失敗しても呼び出し元にエラーは返さず、空のLocationに縮退する。
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/launchwatch/internal/metrics"
	"github.com/hitoshi/launchwatch/internal/model"
	"github.com/hitoshi/launchwatch/internal/security"
)

const (
	// DefaultEndpoint はipapi.coのベースURL。
	DefaultEndpoint = "https://ipapi.co"
	// userAgent はipapi.coが要求するUser-Agentヘッダ値。
	userAgent = "launchwatch/1.0"
	// maxResponseSize はレスポンスボディの読み取り上限。
	maxResponseSize = 64 * 1024
)

// Locator はIPアドレスの位置情報を解決する。
// 解決できない場合は空のLocationを返し、エラーは返さない。
type Locator interface {
	Lookup(ctx context.Context, ip string) model.Location
}

// ipapiResponse は {endpoint}/{ip}/json/ のレスポンスのうち使用する項目。
// レート制限や予約済みアドレスの場合は200で {"error": true} が返る。
type ipapiResponse struct {
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
	CountryName string `json:"country_name"`
	City        string `json:"city"`
}

// Client はipapi.co互換APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	endpoint   string
	timeout    time.Duration
}

// NewClient はClientの新しいインスタンスを生成する。
// endpointが空の場合はDefaultEndpointを使用する。
// timeoutは1回の検索全体に適用される。0以下の場合はhttpClientの設定に従う。
func NewClient(httpClient *http.Client, endpoint string, timeout time.Duration, logger *slog.Logger, m metrics.MetricsCollector) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
		endpoint:   strings.TrimRight(endpoint, "/"),
		timeout:    timeout,
	}
}

// Lookup はIPアドレスの国名と都市名を返す。
// 公開IPでないアドレスは問い合わせずに空のLocationを返す。
// 通信エラー、2xx以外のステータス、不正なJSON、エラーペイロードはいずれも
// WARNログとメトリクスに記録したうえで空のLocationを返す。
func (c *Client) Lookup(ctx context.Context, ip string) model.Location {
	if !security.IsGeolocatable(ip) {
		c.metrics.RecordGeoLookup(metrics.GeoSkipped)
		return model.Location{}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	loc, err := c.fetch(ctx, ip)
	c.metrics.RecordGeoLatency(time.Since(start))
	if err != nil {
		c.logger.Warn("位置情報の取得に失敗しました",
			slog.String("ip", ip),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordGeoLookup(metrics.GeoFailed)
		return model.Location{}
	}

	c.metrics.RecordGeoLookup(metrics.GeoResolved)
	return loc
}

func (c *Client) fetch(ctx context.Context, ip string) (model.Location, error) {
	reqURL := c.endpoint + "/" + url.PathEscape(ip) + "/json/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.Location{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Location{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.RecordGeoHTTPStatus(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Location{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return model.Location{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var result ipapiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return model.Location{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Error {
		return model.Location{}, fmt.Errorf("provider error: %s", result.Reason)
	}

	return model.Location{
		Country: model.StringPtr(strings.TrimSpace(result.CountryName)),
		City:    model.StringPtr(strings.TrimSpace(result.City)),
	}, nil
}

// compile-time interface check
var _ Locator = (*Client)(nil)
