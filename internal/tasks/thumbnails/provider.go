package thumbnails

import (
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/redisqueue"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

// ProvideRunner 装配 Runner，依赖缺失时返回 nil。
func ProvideRunner(queue *redisqueue.ThumbnailQueue, svc *services.ThumbnailService, cfg configloader.ThumbnailConfig, logger log.Logger) *Runner {
	if queue == nil || svc == nil {
		return nil
	}
	runner, err := NewRunner(queue, svc, Config{
		Workers:     cfg.Workers,
		MaxAttempts: cfg.MaxAttempts,
	}, logger)
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "init thumbnail runner failed", "error", err)
		return nil
	}
	return runner
}
