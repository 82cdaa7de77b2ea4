package objectstore_test

import (
	"context"
	"io"
	"testing"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/miniostore"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/objectstore"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/s3store"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

func TestProvideSelectsDriver(t *testing.T) {
	ctx := context.Background()
	logger := log.NewStdLogger(io.Discard)

	store, cleanup, err := objectstore.Provide(ctx, configloader.StorageConfig{
		Driver: configloader.StorageDriverMinIO,
		Bucket: "videos",
		Region: "us-east-1",
		MinIO: configloader.MinIOConfig{
			Endpoint:        "localhost:9000",
			AccessKeyID:     "minio",
			SecretAccessKey: "minio123",
		},
	}, logger)
	require.NoError(t, err)
	defer cleanup()
	require.IsType(t, &miniostore.Store{}, store)
	require.Equal(t, "videos", store.Bucket())

	store, cleanup, err = objectstore.Provide(ctx, configloader.StorageConfig{
		Driver: configloader.StorageDriverS3,
		Bucket: "videos",
		Region: "eu-west-1",
		S3: configloader.S3Config{
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "secret",
		},
	}, logger)
	require.NoError(t, err)
	defer cleanup()
	require.IsType(t, &s3store.Store{}, store)
	require.Equal(t, "eu-west-1", store.Region())
}

func TestProvideRejectsUnknownDriver(t *testing.T) {
	_, _, err := objectstore.Provide(context.Background(), configloader.StorageConfig{Driver: "azure", Bucket: "b"}, log.NewStdLogger(io.Discard))
	require.ErrorContains(t, err, "azure")
}
