//go:build wireinject
// +build wireinject

// Package main 为 worker 状态任务 CLI 提供 Wire 依赖注入定义。
package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-upload/internal/app"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/database"
	loginfra "github.com/bionicotaku/lingo-services-upload/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/metrics"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/objectstore"
	"github.com/bionicotaku/lingo-services-upload/internal/repositories"
	"github.com/bionicotaku/lingo-services-upload/internal/services"
	"github.com/bionicotaku/lingo-services-upload/internal/tasks/status"

	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireStatusTask(context.Context, configloader.Params) (*statusTaskApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		loginfra.ProviderSet,
		database.ProviderSet,
		repositories.ProviderSet,
		objectstore.Provide,
		metrics.NewRecorder,
		wire.Bind(new(services.Metrics), new(*metrics.Recorder)),
		app.ProvideIssuer,
		app.ProvideTranscodeDispatcher,
		app.ProvideVideoService,
		provideNoThumbnails,
		status.ProvideSubscriber,
		status.ProvideRunner,
		newStatusTaskApp,
	))
}
