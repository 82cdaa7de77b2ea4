package controllers

import (
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"

	"github.com/google/wire"
)

// ProviderSet exposes controller/handler constructors for DI.
var ProviderSet = wire.NewSet(
	ProvideHandlerTimeouts,
	NewBaseHandler,
	NewAuthenticator,
	NewWorkerVerifier,
	NewUploadHandler,
	NewVideoHandler,
	NewWorkerHandler,
)

// ProvideHandlerTimeouts 从配置构造 Handler 超时策略。
func ProvideHandlerTimeouts(cfg configloader.ServerConfig) HandlerTimeouts {
	return HandlerTimeouts{
		Default: cfg.Handlers.DefaultTimeout.Std(),
		Command: cfg.Handlers.CommandTimeout.Std(),
		Query:   cfg.Handlers.QueryTimeout.Std(),
	}
}
