// Package app 汇总各进程共享的服务装配逻辑，供 cmd 下的 Wire 图引用。
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/ffmpeg"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/metrics"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/objectstore"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/redisqueue"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/sqsqueue"
	"github.com/bionicotaku/lingo-services-upload/internal/repositories"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet 暴露业务服务装配函数。
var ProviderSet = wire.NewSet(
	objectstore.Provide,
	metrics.NewRecorder,
	wire.Bind(new(services.Metrics), new(*metrics.Recorder)),
	ProvideIssuer,
	ProvideUploadService,
	ProvideRedisClient,
	ProvideThumbnailQueue,
	ProvideThumbnailService,
	ProvideThumbnailDispatcher,
	ProvideTranscodeDispatcher,
	ProvideVideoService,
)

const dispatcherDrainTimeout = 10 * time.Second

// ProvideIssuer 构造签名 URL 签发器。
func ProvideIssuer(store services.ObjectStore, cfg services.IssuerConfig, m services.Metrics, logger log.Logger) (*services.Issuer, error) {
	return services.NewIssuer(store, cfg, logger, services.WithIssuerMetrics(m))
}

// ProvideUploadService 构造上传编排服务。
func ProvideUploadService(issuer *services.Issuer, limits services.UploadLimits, logger log.Logger) (*services.UploadService, error) {
	return services.NewUploadService(issuer, limits, logger)
}

// ProvideRedisClient 仅在缩略图使用 redis 模式时建立连接，否则返回 nil。
func ProvideRedisClient(ctx context.Context, thumb configloader.ThumbnailConfig, cfg configloader.RedisConfig) (*redis.Client, func(), error) {
	if thumb.Mode != configloader.ThumbnailModeRedis {
		return nil, func() {}, nil
	}
	return redisqueue.NewClient(ctx, cfg)
}

// ProvideThumbnailQueue 在 Redis 可用时构造缩略图队列。
func ProvideThumbnailQueue(client *redis.Client, cfg configloader.ThumbnailConfig, logger log.Logger) *redisqueue.ThumbnailQueue {
	if client == nil {
		return nil
	}
	return redisqueue.ProvideThumbnailQueue(client, cfg, logger)
}

// ProvideThumbnailService 构造缩略图生成服务，ffmpeg 截帧后经 Issuer 上传。
func ProvideThumbnailService(issuer *services.Issuer, repo *repositories.VideoRepository, cfg configloader.ThumbnailConfig, m services.Metrics, logger log.Logger) (*services.ThumbnailService, error) {
	extractor := ffmpeg.ProvideExtractor(cfg, logger)
	return services.NewThumbnailService(issuer, extractor, repo, cfg.ServiceThumbnailConfig(), logger, m)
}

// ProvideThumbnailDispatcher 按 thumbnail.mode 选择派发方式，disabled 时返回 nil。
func ProvideThumbnailDispatcher(cfg configloader.ThumbnailConfig, svc *services.ThumbnailService, queue *redisqueue.ThumbnailQueue, logger log.Logger) (services.ThumbnailDispatcher, func(), error) {
	noop := func() {}
	switch cfg.Mode {
	case configloader.ThumbnailModeDisabled:
		return nil, noop, nil
	case configloader.ThumbnailModeInline:
		return services.NewInlineThumbnailDispatcher(svc), noop, nil
	case configloader.ThumbnailModeRedis:
		if queue == nil {
			return nil, nil, fmt.Errorf("thumbnail mode redis requires a redis connection")
		}
		return queue, noop, nil
	case configloader.ThumbnailModeAsync, "":
		d := services.NewAsyncThumbnailDispatcher(svc, cfg.Workers, cfg.QueueSize, logger)
		cleanup := func() {
			ctx, cancel := context.WithTimeout(context.Background(), dispatcherDrainTimeout)
			defer cancel()
			if err := d.Close(ctx); err != nil {
				log.NewHelper(logger).Warnf("drain thumbnail dispatcher: %v", err)
			}
		}
		return d, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unsupported thumbnail mode %q", cfg.Mode)
	}
}

// ProvideTranscodeDispatcher 在启用转码时返回 SQS 投递器，否则返回 nil 接口值。
func ProvideTranscodeDispatcher(ctx context.Context, cfg configloader.TranscodeConfig, logger log.Logger) (services.TranscodeDispatcher, error) {
	pub, err := sqsqueue.ProvidePublisher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if pub == nil {
		return nil, nil
	}
	return pub, nil
}

// ProvideVideoService 构造视频记录服务。
func ProvideVideoService(
	repo *repositories.VideoRepository,
	tx txmanager.Manager,
	issuer *services.Issuer,
	thumbnails services.ThumbnailDispatcher,
	transcode services.TranscodeDispatcher,
	rc configloader.RuntimeConfig,
	m services.Metrics,
	logger log.Logger,
) (*services.VideoService, error) {
	opts := []services.VideoServiceOption{
		services.WithVideoMetrics(m),
		services.WithDefaultMaxRetries(rc.Upload.DefaultMaxRetries),
	}
	if transcode != nil {
		opts = append(opts, services.WithTranscodeDispatcher(transcode))
	}
	return services.NewVideoService(repo, tx, issuer, thumbnails, logger, opts...)
}
