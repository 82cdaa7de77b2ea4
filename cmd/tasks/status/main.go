// Package main 提供 worker 状态事件消费者的独立进程入口。
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/tasks/status"

	"github.com/go-kratos/kratos/v2/log"

	_ "go.uber.org/automaxprocs"
)

type statusTaskApp struct {
	Runner *status.Runner
	Logger log.Logger
}

func main() {
	ctx := context.Background()

	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	app, cleanup, err := wireStatusTask(ctx, configloader.Params{ConfPath: *confFlag})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	helper := log.NewHelper(app.Logger)
	if app.Runner == nil {
		helper.Warn("worker status runner disabled (missing worker_status.subscription_id configuration)")
		return
	}

	helper.Info("starting worker status runner")

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		helper.Errorf("worker status runner stopped unexpectedly: %v", err)
		os.Exit(1)
	}

	helper.Info("worker status runner stopped")
}
