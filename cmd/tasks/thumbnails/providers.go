package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/redisqueue"
	"github.com/bionicotaku/lingo-services-upload/internal/tasks/thumbnails"

	"github.com/go-kratos/kratos/v2/log"
)

// provideWorkerQueue 无视 thumbnail.mode，worker 进程总是连接 Redis。
func provideWorkerQueue(ctx context.Context, redisCfg configloader.RedisConfig, cfg configloader.ThumbnailConfig, logger log.Logger) (*redisqueue.ThumbnailQueue, func(), error) {
	client, cleanup, err := redisqueue.NewClient(ctx, redisCfg)
	if err != nil {
		return nil, nil, err
	}
	return redisqueue.ProvideThumbnailQueue(client, cfg, logger), cleanup, nil
}

func newThumbnailsTaskApp(logger log.Logger, runner *thumbnails.Runner) *thumbnailsTaskApp {
	return &thumbnailsTaskApp{Runner: runner, Logger: logger}
}
