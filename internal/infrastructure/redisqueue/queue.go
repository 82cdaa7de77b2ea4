// Package redisqueue 使用 Redis List 承载缩略图任务队列。
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey 为缩略图任务列表的默认 Key。
const DefaultQueueKey = "upload:thumbnail:jobs"

// NewClient 创建 Redis 客户端并执行 PING。
func NewClient(ctx context.Context, cfg configloader.RedisConfig) (*redis.Client, func(), error) {
	if cfg.Addr == "" {
		return nil, nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ThumbnailQueue 以 RPUSH/BLPOP 实现 FIFO 任务队列。
type ThumbnailQueue struct {
	client redis.UniversalClient
	key    string
	now    func() time.Time
	log    *log.Helper
}

// NewThumbnailQueue 构造 ThumbnailQueue。
func NewThumbnailQueue(client redis.UniversalClient, key string, logger log.Logger) *ThumbnailQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &ThumbnailQueue{
		client: client,
		key:    key,
		now:    time.Now,
		log:    log.NewHelper(logger),
	}
}

// ProvideThumbnailQueue 供 Wire 注入使用。
func ProvideThumbnailQueue(client *redis.Client, cfg configloader.ThumbnailConfig, logger log.Logger) *ThumbnailQueue {
	return NewThumbnailQueue(client, cfg.QueueKey, logger)
}

// Key 返回队列 Key。
func (q *ThumbnailQueue) Key() string { return q.key }

// Enqueue 将任务追加到队尾。
func (q *ThumbnailQueue) Enqueue(ctx context.Context, job vo.ThumbnailJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode thumbnail job: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		q.log.WithContext(ctx).Errorf("enqueue thumbnail job failed: video_id=%s err=%v", job.VideoID, err)
		return fmt.Errorf("rpush thumbnail job: %w", err)
	}
	return nil
}

// Dequeue 阻塞等待最多 timeout，队列为空时返回 (nil, nil)。
func (q *ThumbnailQueue) Dequeue(ctx context.Context, timeout time.Duration) (*vo.ThumbnailJob, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("blpop thumbnail job: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected blpop reply length %d", len(res))
	}
	var job vo.ThumbnailJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode thumbnail job: %w", err)
	}
	return &job, nil
}

// Len 返回当前排队的任务数。
func (q *ThumbnailQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Dispatch 实现 services.ThumbnailDispatcher，仅入队不等待结果。
func (q *ThumbnailQueue) Dispatch(ctx context.Context, job vo.ThumbnailJob) (string, error) {
	if err := q.Enqueue(ctx, job); err != nil {
		return "", err
	}
	return "", nil
}
