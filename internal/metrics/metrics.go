// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 購読操作のラベル値
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordSubscription(action string)
	RecordArticleCreated()
	RecordFanOut(delivered int, duration time.Duration)
	RecordFanOutEmpty()
	RecordFanOutFailure()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	subscriptions   *prometheus.CounterVec
	articlesCreated prometheus.Counter
	fanOutDelivered prometheus.Counter
	fanOutEmpty     prometheus.Counter
	fanOutFailures  prometheus.Counter
	fanOutDuration  prometheus.Histogram
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolnews_subscriptions_total",
			Help: "購読・購読解除の合計数",
		}, []string{"action"}),
		articlesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schoolnews_articles_created_total",
			Help: "作成された記事の合計数",
		}),
		fanOutDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schoolnews_fanout_deliveries_total",
			Help: "ファンアウトで作成された配達記録の合計数",
		}),
		fanOutEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schoolnews_fanout_empty_total",
			Help: "購読者がいないため配達を行わなかったファンアウトの合計数",
		}),
		fanOutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schoolnews_fanout_failures_total",
			Help: "失敗したファンアウトの合計数",
		}),
		fanOutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schoolnews_fanout_duration_seconds",
			Help:    "ファンアウト処理の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolnews_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.subscriptions,
		c.articlesCreated,
		c.fanOutDelivered,
		c.fanOutEmpty,
		c.fanOutFailures,
		c.fanOutDuration,
		c.httpStatus,
	)

	return c
}

// RecordSubscription は購読操作を記録する。
func (c *Collector) RecordSubscription(action string) {
	c.subscriptions.WithLabelValues(action).Inc()
}

// RecordArticleCreated は記事作成を記録する。
func (c *Collector) RecordArticleCreated() {
	c.articlesCreated.Inc()
}

// RecordFanOut は完了したファンアウトの配達件数と所要時間を記録する。
func (c *Collector) RecordFanOut(delivered int, duration time.Duration) {
	c.fanOutDelivered.Add(float64(delivered))
	c.fanOutDuration.Observe(duration.Seconds())
}

// RecordFanOutEmpty は購読者ゼロのファンアウトを記録する。
func (c *Collector) RecordFanOutEmpty() {
	c.fanOutEmpty.Inc()
}

// RecordFanOutFailure はファンアウト失敗を記録する。
func (c *Collector) RecordFanOutFailure() {
	c.fanOutFailures.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordSubscription(string) {}
func (Nop) RecordArticleCreated() {}
func (Nop) RecordFanOut(int, time.Duration) {}
func (Nop) RecordFanOutEmpty() {}
func (Nop) RecordFanOutFailure() {}
func (Nop) RecordHTTPStatus(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
