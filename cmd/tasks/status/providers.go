package main

import (
	"github.com/bionicotaku/lingo-services-upload/internal/services"
	"github.com/bionicotaku/lingo-services-upload/internal/tasks/status"

	"github.com/go-kratos/kratos/v2/log"
)

// provideNoThumbnails 状态回报不会新建记录，因此不需要缩略图派发。
func provideNoThumbnails() services.ThumbnailDispatcher {
	return nil
}

func newStatusTaskApp(logger log.Logger, runner *status.Runner) *statusTaskApp {
	return &statusTaskApp{Runner: runner, Logger: logger}
}
