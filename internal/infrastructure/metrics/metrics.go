// Package metrics 基于 Prometheus 实现 services.Metrics 并暴露 /metrics。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/bionicotaku/lingo-services-upload/internal/models/po"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "upload"

// Recorder 持有独立的 Registry，避免与全局注册冲突。
type Recorder struct {
	registry            *prometheus.Registry
	presignedURLs       *prometheus.CounterVec
	multipartCompleted  *prometheus.CounterVec
	statusTransitions   *prometheus.CounterVec
	thumbnailResults    *prometheus.CounterVec
	transcodeDispatched *prometheus.CounterVec
	requests            *prometheus.CounterVec
	requestSeconds      *prometheus.HistogramVec
}

// NewRecorder 创建 Recorder 并注册进程与 Go 运行时指标。
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		presignedURLs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presigned_urls_total",
			Help:      "Number of presigned URLs issued",
		}, []string{"kind"}),
		multipartCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "multipart_completed_total",
			Help:      "Multipart completion attempts by result",
		}, []string{"result"}),
		statusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_status_transitions_total",
			Help:      "Applied video status transitions",
		}, []string{"from", "to", "source"}),
		thumbnailResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnail_results_total",
			Help:      "Thumbnail generation outcomes",
		}, []string{"result"}),
		transcodeDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_dispatched_total",
			Help:      "Transcode job dispatch outcomes",
		}, []string{"result"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by operation and status code",
		}, []string{"operation", "code"}),
		requestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Registry 返回底层 Registry。
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler 返回 /metrics 处理器。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) PresignedURL(kind string) {
	r.presignedURLs.WithLabelValues(kind).Inc()
}

func (r *Recorder) MultipartCompleted(result string) {
	r.multipartCompleted.WithLabelValues(result).Inc()
}

func (r *Recorder) StatusTransition(from, to po.VideoStatus, source string) {
	r.statusTransitions.WithLabelValues(string(from), string(to), source).Inc()
}

func (r *Recorder) ThumbnailResult(result string) {
	r.thumbnailResults.WithLabelValues(result).Inc()
}

func (r *Recorder) TranscodeDispatched(result string) {
	r.transcodeDispatched.WithLabelValues(result).Inc()
}

// ObserveRequest 记录一次 HTTP 请求。
func (r *Recorder) ObserveRequest(operation string, code int, seconds float64) {
	r.requests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
	r.requestSeconds.WithLabelValues(operation).Observe(seconds)
}
