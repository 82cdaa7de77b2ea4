package server

import (
	"context"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/controllers"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/metrics"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

// requestMetrics 按 operation 记录请求数与耗时，状态码与 ErrorEncoder 的映射一致。
func requestMetrics(rec *metrics.Recorder) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			operation := "unknown"
			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
			}
			start := time.Now()
			reply, err := handler(ctx, req)
			code := 200
			if err != nil {
				code = int(controllers.TranslateError(err).Code)
			}
			rec.ObserveRequest(operation, code, time.Since(start).Seconds())
			return reply, err
		}
	}
}
