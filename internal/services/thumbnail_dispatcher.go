package services

import (
	"context"
	"errors"
	"sync"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
)

// ThumbnailProcessor 执行单个缩略图任务。
type ThumbnailProcessor interface {
	Process(ctx context.Context, job vo.ThumbnailJob) (string, error)
}

// ErrDispatcherClosed 表示派发器已关闭。
var ErrDispatcherClosed = errors.New("thumbnail dispatcher closed")

// ErrDispatcherBusy 表示任务队列已满。
var ErrDispatcherBusy = errors.New("thumbnail dispatcher busy")

// InlineThumbnailDispatcher 在请求内同步生成缩略图。
type InlineThumbnailDispatcher struct {
	processor ThumbnailProcessor
}

// NewInlineThumbnailDispatcher 构造同步派发器。
func NewInlineThumbnailDispatcher(processor ThumbnailProcessor) *InlineThumbnailDispatcher {
	return &InlineThumbnailDispatcher{processor: processor}
}

// Dispatch 同步执行任务并返回缩略图 Key。
func (d *InlineThumbnailDispatcher) Dispatch(ctx context.Context, job vo.ThumbnailJob) (string, error) {
	return d.processor.Process(ctx, job)
}

// AsyncThumbnailDispatcher 使用有界队列与固定数量的 goroutine 在后台生成缩略图。
type AsyncThumbnailDispatcher struct {
	processor ThumbnailProcessor
	jobs      chan asyncJob
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	log       *log.Helper
}

type asyncJob struct {
	ctx context.Context
	job vo.ThumbnailJob
}

// NewAsyncThumbnailDispatcher 启动 workers 个后台 goroutine，队列容量为 queueSize。
func NewAsyncThumbnailDispatcher(processor ThumbnailProcessor, workers, queueSize int, logger log.Logger) *AsyncThumbnailDispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &AsyncThumbnailDispatcher{
		processor: processor,
		jobs:      make(chan asyncJob, queueSize),
		log:       log.NewHelper(logger),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.loop()
	}
	return d
}

// Dispatch 将任务放入队列后立即返回；请求取消不会中断已入队的任务。
func (d *AsyncThumbnailDispatcher) Dispatch(ctx context.Context, job vo.ThumbnailJob) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return "", ErrDispatcherClosed
	}
	select {
	case d.jobs <- asyncJob{ctx: context.WithoutCancel(ctx), job: job}:
		return "", nil
	default:
		return "", ErrDispatcherBusy
	}
}

func (d *AsyncThumbnailDispatcher) loop() {
	defer d.wg.Done()
	for item := range d.jobs {
		if _, err := d.processor.Process(item.ctx, item.job); err != nil {
			d.log.WithContext(item.ctx).Warnf("async thumbnail failed: video_id=%s err=%v", item.job.VideoID, err)
		}
	}
}

// Close 停止接收新任务并等待队列中的任务完成，ctx 到期时提前返回。
func (d *AsyncThumbnailDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
