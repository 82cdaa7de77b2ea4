// Package logger 构造带 trace/span 信息的 Kratos 日志器。
package logger

import (
	"context"

	"github.com/bionicotaku/lingo-utils/gclog"
	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds a Kratos-compatible logger backed by gclog with trace/span enrichment.
func NewLogger(cfg gclog.Config) (log.Logger, error) {
	baseLogger, err := gclog.NewLogger(
		gclog.WithService(cfg.Service),
		gclog.WithVersion(cfg.Version),
		gclog.WithEnvironment(cfg.Environment),
		gclog.WithStaticLabels(cfg.StaticLabels),
		gclog.EnableSourceLocation(),
	)
	if err != nil {
		return nil, err
	}
	return WithTrace(baseLogger), nil
}

// WithTrace 为日志追加 trace_id/span_id 字段。
func WithTrace(base log.Logger) log.Logger {
	return log.With(
		base,
		"trace_id", log.Valuer(func(ctx context.Context) interface{} {
			sc := trace.SpanContextFromContext(ctx)
			if sc.HasTraceID() {
				return sc.TraceID().String()
			}
			return ""
		}),
		"span_id", log.Valuer(func(ctx context.Context) interface{} {
			sc := trace.SpanContextFromContext(ctx)
			if sc.HasSpanID() {
				return sc.SpanID().String()
			}
			return ""
		}),
	)
}
