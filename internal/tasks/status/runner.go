package status

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	"github.com/go-kratos/kratos/v2/log"
)

// Runner 封装 worker 状态事件的消费循环。
type Runner struct {
	subscriber gcpubsub.Subscriber
	handler    *Handler
	decoder    *reportDecoder
	log        *log.Helper
}

// RunnerParams 注入 Runner 所需依赖。
type RunnerParams struct {
	Subscriber gcpubsub.Subscriber
	Updater    statusUpdater
	Logger     log.Logger
}

// NewRunner 构造 Runner。
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Subscriber == nil {
		return nil, fmt.Errorf("status: subscriber is required")
	}
	if params.Updater == nil {
		return nil, fmt.Errorf("status: updater is required")
	}
	return &Runner{
		subscriber: params.Subscriber,
		handler:    NewHandler(params.Updater, params.Logger),
		decoder:    newReportDecoder(),
		log:        log.NewHelper(params.Logger),
	}, nil
}

// Run 启动消费循环，直到 context 取消。
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.subscriber == nil {
		return nil
	}
	return r.subscriber.Receive(ctx, r.processMessage)
}

func (r *Runner) processMessage(ctx context.Context, msg *gcpubsub.Message) error {
	if msg == nil {
		return nil
	}
	report, err := r.decoder.Decode(msg.Data)
	if err != nil {
		r.log.WithContext(ctx).Warnw("msg", "decode worker status report failed", "error", err)
		return nil
	}
	return r.handler.Handle(ctx, report)
}
