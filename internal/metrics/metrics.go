// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 結果ラベルの値
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証・補完・本文抽出の各サービスとHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordCompletionStream(endpoint, outcome string)
	RecordCompletionChunk()
	RecordUpstreamLatency(target string, duration time.Duration)
	RecordExtraction(result string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          *prometheus.CounterVec
	streams         *prometheus.CounterVec
	chunks          prometheus.Counter
	upstreamLatency *prometheus.HistogramVec
	extractions     *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onebrowser_logins_total",
			Help: "Discordログインの結果別の合計数",
		}, []string{"result"}),
		streams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onebrowser_completion_streams_total",
			Help: "補完ストリームのエンドポイント・結果別の合計数",
		}, []string{"endpoint", "outcome"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onebrowser_completion_chunks_total",
			Help: "クライアントへ転送した補完チャンクの合計数",
		}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onebrowser_upstream_latency_seconds",
			Help:    "外部サービス呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onebrowser_extractions_total",
			Help: "記事本文抽出の結果別の合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onebrowser_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.streams,
		c.chunks,
		c.upstreamLatency,
		c.extractions,
		c.httpStatus,
	)

	return c
}

// RecordLogin はログイン結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordCompletionStream は補完ストリームの終了結果を記録する。
func (c *Collector) RecordCompletionStream(endpoint, outcome string) {
	c.streams.WithLabelValues(endpoint, outcome).Inc()
}

// RecordCompletionChunk は転送したチャンクを1件記録する。
func (c *Collector) RecordCompletionChunk() {
	c.chunks.Inc()
}

// RecordUpstreamLatency は外部呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(target string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordExtraction は本文抽出の結果を記録する。
func (c *Collector) RecordExtraction(result string) {
	c.extractions.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordLogin(string) {}
func (Nop) RecordCompletionStream(string, string) {}
func (Nop) RecordCompletionChunk() {}
func (Nop) RecordUpstreamLatency(string, time.Duration) {}
func (Nop) RecordExtraction(string) {}
func (Nop) RecordHTTPStatus(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
