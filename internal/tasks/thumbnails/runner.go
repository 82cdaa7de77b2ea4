// Package thumbnails 实现 Redis 队列驱动的缩略图 worker。
package thumbnails

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// 默认参数。
const (
	DefaultWorkers      = 2
	DefaultMaxAttempts  = 3
	DefaultPollTimeout  = 5 * time.Second
	DefaultErrorBackoff = time.Second
)

type jobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*vo.ThumbnailJob, error)
	Enqueue(ctx context.Context, job vo.ThumbnailJob) error
}

// Config 控制 Runner 并发与重试。
type Config struct {
	Workers      int
	MaxAttempts  int
	PollTimeout  time.Duration
	ErrorBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = DefaultErrorBackoff
	}
	return c
}

// Runner 从队列取出缩略图任务并执行，失败的任务在次数耗尽前重新入队。
type Runner struct {
	queue     jobQueue
	processor services.ThumbnailProcessor
	cfg       Config
	log       *log.Helper
}

// NewRunner 构造 Runner。
func NewRunner(queue jobQueue, processor services.ThumbnailProcessor, cfg Config, logger log.Logger) (*Runner, error) {
	if queue == nil {
		return nil, fmt.Errorf("thumbnails: queue is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("thumbnails: processor is required")
	}
	return &Runner{
		queue:     queue,
		processor: processor,
		cfg:       cfg.withDefaults(),
		log:       log.NewHelper(logger),
	}, nil
}

// Run 启动 Workers 个消费协程，直到 ctx 取消。
func (r *Runner) Run(ctx context.Context) error {
	if r == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Workers; i++ {
		g.Go(func() error { return r.loop(gctx) })
	}
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		job, err := r.queue.Dequeue(ctx, r.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			r.log.WithContext(ctx).Warnf("thumbnails: dequeue failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.cfg.ErrorBackoff):
			}
			continue
		}
		if job == nil {
			continue
		}
		r.handle(ctx, *job)
	}
}

// handle 执行单个任务，失败时按剩余次数决定重新入队或放弃。
func (r *Runner) handle(ctx context.Context, job vo.ThumbnailJob) {
	key, err := r.processor.Process(ctx, job)
	if err == nil {
		r.log.WithContext(ctx).Debugf("thumbnails: done video_id=%s key=%s", job.VideoID, key)
		return
	}

	job.Attempts++
	if job.Attempts >= r.cfg.MaxAttempts {
		r.log.WithContext(ctx).Errorf("thumbnails: giving up video_id=%s attempts=%d err=%v", job.VideoID, job.Attempts, err)
		return
	}
	// 任务已出队，关停时也需写回队列。
	if qErr := r.queue.Enqueue(context.WithoutCancel(ctx), job); qErr != nil {
		r.log.WithContext(ctx).Errorf("thumbnails: requeue failed video_id=%s err=%v", job.VideoID, qErr)
		return
	}
	r.log.WithContext(ctx).Warnf("thumbnails: requeued video_id=%s attempts=%d err=%v", job.VideoID, job.Attempts, err)
}
