// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層から利用する。
type MetricsCollector interface {
	RecordStoreCreated()
	RecordReviewCreated()
	RecordSearch()
	RecordGeoQuery()
	RecordHTTPStatus(statusCode int)
	RecordQueryLatency(operation string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	storesCreated  prometheus.Counter
	reviewsCreated prometheus.Counter
	searches       prometheus.Counter
	geoQueries     prometheus.Counter
	httpStatus     *prometheus.CounterVec
	queryLatency   *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delicious_stores_created_total",
			Help: "作成された店舗の合計数",
		}),
		reviewsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delicious_reviews_created_total",
			Help: "作成されたレビューの合計数",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delicious_searches_total",
			Help: "全文検索クエリの合計数",
		}),
		geoQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delicious_geo_queries_total",
			Help: "近傍検索クエリの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delicious_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "delicious_query_latency_seconds",
			Help:    "分析クエリのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.storesCreated,
		c.reviewsCreated,
		c.searches,
		c.geoQueries,
		c.httpStatus,
		c.queryLatency,
	)

	return c
}

// RecordStoreCreated は店舗作成を記録する。
func (c *Collector) RecordStoreCreated() {
	c.storesCreated.Inc()
}

// RecordReviewCreated はレビュー作成を記録する。
func (c *Collector) RecordReviewCreated() {
	c.reviewsCreated.Inc()
}

// RecordSearch は全文検索クエリを記録する。
func (c *Collector) RecordSearch() {
	c.searches.Inc()
}

// RecordGeoQuery は近傍検索クエリを記録する。
func (c *Collector) RecordGeoQuery() {
	c.geoQueries.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordQueryLatency は分析クエリのレイテンシを操作別に記録する。
func (c *Collector) RecordQueryLatency(operation string, duration time.Duration) {
	c.queryLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
