package server

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/controllers"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// ReadinessProbe 用于 /readyz 检查依赖是否可用，*pgxpool.Pool 满足该接口。
type ReadinessProbe interface {
	Ping(ctx context.Context) error
}

// NewHTTPServer 构造 HTTP Server 并注册业务路由、健康检查与指标端点。
func NewHTTPServer(
	cfg configloader.ServerConfig,
	metricsCfg configloader.MetricsConfig,
	uploads *controllers.UploadHandler,
	videos *controllers.VideoHandler,
	worker *controllers.WorkerHandler,
	rec *metrics.Recorder,
	probe ReadinessProbe,
	logger log.Logger,
) *http.Server {
	mws := []middleware.Middleware{recovery.Recovery(), logging.Server(logger)}
	if rec != nil {
		mws = append(mws, requestMetrics(rec))
	}
	var opts = []http.ServerOption{
		http.Middleware(mws...),
		http.ErrorEncoder(controllers.ErrorEncoder),
	}
	if cfg.HTTP.Network != "" {
		opts = append(opts, http.Network(cfg.HTTP.Network))
	}
	if cfg.HTTP.Addr != "" {
		opts = append(opts, http.Address(cfg.HTTP.Addr))
	}
	if timeout := cfg.HTTP.Timeout.Std(); timeout > 0 {
		opts = append(opts, http.Timeout(timeout))
	}

	srv := http.NewServer(opts...)

	srv.Handle("/healthz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
	}))

	srv.Handle("/readyz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if probe != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := probe.Ping(ctx); err != nil {
				log.NewHelper(logger).WithContext(ctx).Warnf("readiness check failed: %v", err)
				w.WriteHeader(stdhttp.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(stdhttp.StatusOK)
	}))

	if rec != nil && metricsCfg.Enabled {
		path := metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		srv.Handle(path, rec.Handler())
	}

	controllers.RegisterRoutes(srv, uploads, videos, worker)
	return srv
}
