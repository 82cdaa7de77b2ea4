// Package objectstore 按配置选择对象存储驱动。
package objectstore

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/gcs"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/miniostore"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/s3store"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

// Provide 根据 storage.driver 构造 ObjectStore，空值默认 s3。
func Provide(ctx context.Context, cfg configloader.StorageConfig, logger log.Logger) (services.ObjectStore, func(), error) {
	noop := func() {}
	switch cfg.Driver {
	case configloader.StorageDriverS3, "":
		store, err := s3store.ProvideStore(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case configloader.StorageDriverMinIO:
		store, err := miniostore.New(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case configloader.StorageDriverGCS:
		store, cleanup, err := gcs.ProvideStore(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("objectstore: unsupported driver %q", cfg.Driver)
	}
}
