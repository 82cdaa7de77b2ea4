// Package main 提供缩略图 worker 的独立进程入口，消费 Redis 队列中的任务。
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/tasks/thumbnails"

	"github.com/go-kratos/kratos/v2/log"

	_ "go.uber.org/automaxprocs"
)

type thumbnailsTaskApp struct {
	Runner *thumbnails.Runner
	Logger log.Logger
}

func main() {
	ctx := context.Background()

	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	app, cleanup, err := wireThumbnailsTask(ctx, configloader.Params{ConfPath: *confFlag})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	helper := log.NewHelper(app.Logger)
	if app.Runner == nil {
		helper.Warn("thumbnail runner disabled (redis queue unavailable)")
		return
	}

	helper.Info("starting thumbnail runner")

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		helper.Errorf("thumbnail runner stopped unexpectedly: %v", err)
		os.Exit(1)
	}

	helper.Info("thumbnail runner stopped")
}
