// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 位置情報検索の結果ラベル
const (
	GeoResolved = "resolved"
	GeoFailed   = "failed"
	GeoSkipped  = "skipped"
	GeoCacheHit = "cache_hit"
)

// 通知登録の結果ラベル
const (
	ReminderRegistered = "registered"
	ReminderDuplicate  = "duplicate"
	ReminderInvalid    = "invalid"
)

// メール送信の結果ラベル
const (
	EmailSent   = "sent"
	EmailFailed = "failed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とワーカーから利用する。
type MetricsCollector interface {
	RecordVisit(created bool)
	RecordVisitWithoutIP()
	RecordGeoLookup(outcome string)
	RecordGeoLatency(duration time.Duration)
	RecordGeoHTTPStatus(statusCode int)
	RecordReminder(outcome string)
	RecordEmailSend(template, outcome string)
	RecordDispatchCycle(sent, failed int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	visits         *prometheus.CounterVec
	visitsNoIP     prometheus.Counter
	geoLookups     *prometheus.CounterVec
	geoLatency     prometheus.Histogram
	geoHTTPStatus  *prometheus.CounterVec
	reminders      *prometheus.CounterVec
	emailSends     *prometheus.CounterVec
	dispatchCycles prometheus.Counter
	dispatchSent   prometheus.Counter
	dispatchFailed prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		visits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchwatch_visits_recorded_total",
			Help: "記録した訪問数（新規/再訪問別）",
		}, []string{"kind"}),
		visitsNoIP: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchwatch_visits_no_ip_total",
			Help: "クライアントIPが取得できず記録しなかった訪問数",
		}),
		geoLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchwatch_geo_lookups_total",
			Help: "位置情報検索の結果別件数",
		}, []string{"outcome"}),
		geoLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "launchwatch_geo_lookup_latency_seconds",
			Help:    "位置情報APIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		geoHTTPStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchwatch_geo_http_status_total",
			Help: "位置情報APIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchwatch_reminders_total",
			Help: "通知登録リクエストの結果別件数",
		}, []string{"outcome"}),
		emailSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchwatch_email_sends_total",
			Help: "テンプレート・結果別のメール送信数",
		}, []string{"template", "outcome"}),
		dispatchCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchwatch_dispatch_cycles_total",
			Help: "前日通知ジョブの実行サイクル数",
		}),
		dispatchSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchwatch_dispatch_sent_total",
			Help: "前日通知の送信成功数",
		}),
		dispatchFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchwatch_dispatch_failed_total",
			Help: "前日通知の送信失敗数",
		}),
	}

	reg.MustRegister(
		c.visits,
		c.visitsNoIP,
		c.geoLookups,
		c.geoLatency,
		c.geoHTTPStatus,
		c.reminders,
		c.emailSends,
		c.dispatchCycles,
		c.dispatchSent,
		c.dispatchFailed,
	)

	return c
}

// RecordVisit は訪問の記録を計上する。
func (c *Collector) RecordVisit(created bool) {
	kind := "returning"
	if created {
		kind = "new"
	}
	c.visits.WithLabelValues(kind).Inc()
}

// RecordVisitWithoutIP はIPなしで記録しなかった訪問を計上する。
func (c *Collector) RecordVisitWithoutIP() {
	c.visitsNoIP.Inc()
}

// RecordGeoLookup は位置情報検索の結果を計上する。
func (c *Collector) RecordGeoLookup(outcome string) {
	c.geoLookups.WithLabelValues(outcome).Inc()
}

// RecordGeoLatency は位置情報APIのレイテンシを記録する。
func (c *Collector) RecordGeoLatency(duration time.Duration) {
	c.geoLatency.Observe(duration.Seconds())
}

// RecordGeoHTTPStatus は位置情報APIのHTTPステータスコードを記録する。
func (c *Collector) RecordGeoHTTPStatus(statusCode int) {
	c.geoHTTPStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordReminder は通知登録の結果を計上する。
func (c *Collector) RecordReminder(outcome string) {
	c.reminders.WithLabelValues(outcome).Inc()
}

// RecordEmailSend はメール送信の結果を計上する。
func (c *Collector) RecordEmailSend(template, outcome string) {
	c.emailSends.WithLabelValues(template, outcome).Inc()
}

// RecordDispatchCycle は前日通知ジョブの1サイクル分の結果を記録する。
func (c *Collector) RecordDispatchCycle(sent, failed int) {
	c.dispatchCycles.Inc()
	c.dispatchSent.Add(float64(sent))
	c.dispatchFailed.Add(float64(failed))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordVisit(bool) {}
func (Nop) RecordVisitWithoutIP() {}
func (Nop) RecordGeoLookup(string) {}
func (Nop) RecordGeoLatency(time.Duration) {}
func (Nop) RecordGeoHTTPStatus(int) {}
func (Nop) RecordReminder(string) {}
func (Nop) RecordEmailSend(string, string) {}
func (Nop) RecordDispatchCycle(int, int) {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
