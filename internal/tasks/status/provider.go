package status

import (
	"context"
	"strings"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	"github.com/go-kratos/kratos/v2/log"
)

// ProvideSubscriber 根据 worker_status 配置构造 Pub/Sub 订阅者，未配置订阅时返回 nil。
func ProvideSubscriber(ctx context.Context, cfg configloader.WorkerStatusConfig, logger log.Logger) (gcpubsub.Subscriber, func(), error) {
	if strings.TrimSpace(cfg.ProjectID) == "" || strings.TrimSpace(cfg.SubscriptionID) == "" {
		return nil, func() {}, nil
	}
	component, cleanup, err := gcpubsub.NewComponent(ctx, gcpubsub.Config{
		ProjectID:        cfg.ProjectID,
		TopicID:          cfg.TopicID,
		SubscriptionID:   cfg.SubscriptionID,
		EmulatorEndpoint: cfg.EmulatorEndpoint,
		EnableLogging:    cfg.LoggingEnabled,
		EnableMetrics:    cfg.MetricsEnabled,
	}, gcpubsub.Dependencies{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return gcpubsub.ProvideSubscriber(component), cleanup, nil
}

// ProvideRunner 装配 Runner，订阅者缺失时返回 nil。
func ProvideRunner(sub gcpubsub.Subscriber, videos *services.VideoService, logger log.Logger) *Runner {
	if sub == nil || videos == nil || logger == nil {
		return nil
	}
	runner, err := NewRunner(RunnerParams{
		Subscriber: sub,
		Updater:    videos,
		Logger:     logger,
	})
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "init worker status runner failed", "error", err)
		return nil
	}
	return runner
}
