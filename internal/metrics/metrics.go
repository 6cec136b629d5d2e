// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 操作結果のラベル値
const (
	OutcomeOK               = "ok"
	OutcomeDenied           = "denied"
	OutcomeInvalid          = "invalid"
	OutcomeNotFound         = "not_found"
	OutcomeConstraint       = "constraint"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomeError            = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordOperation(operation, outcome string)
	RecordAccessDenied(operation string)
	RecordStoreUnavailable(operation string)
	RecordHTTPStatus(statusCode int)
	RecordUploadBytes(n int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	operations       *prometheus.CounterVec
	accessDenied     *prometheus.CounterVec
	storeUnavailable *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	uploadBytes      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railgallery_operations_total",
			Help: "API操作の実行数（操作名・結果別）",
		}, []string{"operation", "outcome"}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railgallery_access_denied_total",
			Help: "アクセス制御で拒否された操作数",
		}, []string{"operation"}),
		storeUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railgallery_store_unavailable_total",
			Help: "ストア到達不能で縮退または失敗した操作数",
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railgallery_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railgallery_upload_bytes_total",
			Help: "アップロードされた画像の合計バイト数",
		}),
	}

	reg.MustRegister(
		c.operations,
		c.accessDenied,
		c.storeUnavailable,
		c.httpStatus,
		c.uploadBytes,
	)

	return c
}

// RecordOperation は操作の実行結果を記録する。
func (c *Collector) RecordOperation(operation, outcome string) {
	c.operations.WithLabelValues(operation, outcome).Inc()
}

// RecordAccessDenied はアクセス拒否を記録する。
func (c *Collector) RecordAccessDenied(operation string) {
	c.accessDenied.WithLabelValues(operation).Inc()
}

// RecordStoreUnavailable はストア到達不能を記録する。
func (c *Collector) RecordStoreUnavailable(operation string) {
	c.storeUnavailable.WithLabelValues(operation).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUploadBytes はアップロードされたバイト数を加算する。
func (c *Collector) RecordUploadBytes(n int64) {
	c.uploadBytes.Add(float64(n))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordOperation(string, string) {}
func (Nop) RecordAccessDenied(string) {}
func (Nop) RecordStoreUnavailable(string) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordUploadBytes(int64) {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
