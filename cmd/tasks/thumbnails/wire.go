//go:build wireinject
// +build wireinject

// Package main 为缩略图任务 CLI 提供 Wire 依赖注入定义。
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
	"github.com/bionicotaku/lingo-services-upload/internal/tasks/thumbnails"

	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireThumbnailsTask(context.Context, configloader.Params) (*thumbnailsTaskApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		loginfra.ProviderSet,
		database.NewPgxPool,
		repositories.ProviderSet,
		objectstore.Provide,
		metrics.NewRecorder,
		wire.Bind(new(services.Metrics), new(*metrics.Recorder)),
		app.ProvideIssuer,
		app.ProvideThumbnailService,
		provideWorkerQueue,
		thumbnails.ProvideRunner,
		newThumbnailsTaskApp,
	))
}
