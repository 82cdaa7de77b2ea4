//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-upload/internal/app"
	"github.com/bionicotaku/lingo-services-upload/internal/controllers"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/database"
	loginfra "github.com/bionicotaku/lingo-services-upload/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-upload/internal/repositories"
	"github.com/bionicotaku/lingo-services-upload/internal/server"

	"github.com/go-kratos/kratos/v2"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:generate go run github.com/google/wire/cmd/wire

// wireServerApp init kratos application.
func wireServerApp(context.Context, configloader.Params) (*kratos.App, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		loginfra.ProviderSet,
		database.ProviderSet,
		repositories.ProviderSet,
		app.ProviderSet,
		controllers.ProviderSet,
		server.ProviderSet,
		wire.Bind(new(server.ReadinessProbe), new(*pgxpool.Pool)),
		newApp,
	))
}
