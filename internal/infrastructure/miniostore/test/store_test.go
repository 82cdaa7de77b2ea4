package miniostore_test

import (
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/miniostore"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

func storageConfig() configloader.StorageConfig {
	return configloader.StorageConfig{
		Driver: configloader.StorageDriverMinIO,
		Bucket: "lingo-videos",
		Region: "us-east-1",
		MinIO: configloader.MinIOConfig{
			Endpoint:        "localhost:9000",
			AccessKeyID:     "minio",
			SecretAccessKey: "minio123",
		},
	}
}

func TestPresignPutOffline(t *testing.T) {
	store, err := miniostore.New(storageConfig(), log.NewStdLogger(io.Discard))
	require.NoError(t, err)
	require.Equal(t, "lingo-videos", store.Bucket())

	signed, err := store.PresignPut(context.Background(), "uploads/1700-abc-u1.mp4", "video/mp4", 360*time.Second)
	require.NoError(t, err)
	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, "http", parsed.Scheme)
	require.Equal(t, "localhost:9000", parsed.Host)
	require.Equal(t, "/lingo-videos/uploads/1700-abc-u1.mp4", parsed.Path)
	require.Equal(t, "360", parsed.Query().Get("X-Amz-Expires"))
	require.Contains(t, parsed.Query().Get("X-Amz-SignedHeaders"), "content-type")
}

func TestPresignGetAndPartOffline(t *testing.T) {
	store, err := miniostore.New(storageConfig(), log.NewStdLogger(io.Discard))
	require.NoError(t, err)
	ctx := context.Background()

	getURL, err := store.PresignGet(ctx, "thumbnails/u1/thumb-a.jpg", 300*time.Second)
	require.NoError(t, err)
	parsed, err := url.Parse(getURL)
	require.NoError(t, err)
	require.Equal(t, "300", parsed.Query().Get("X-Amz-Expires"))

	partURL, err := store.PresignPart(ctx, "uploads/k.mp4", "mu-1", 5, time.Hour)
	require.NoError(t, err)
	parsed, err = url.Parse(partURL)
	require.NoError(t, err)
	require.Equal(t, "5", parsed.Query().Get("partNumber"))
	require.Equal(t, "mu-1", parsed.Query().Get("uploadId"))
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := storageConfig()
	cfg.MinIO.Endpoint = ""
	_, err := miniostore.New(cfg, log.NewStdLogger(io.Discard))
	require.Error(t, err)

	cfg = storageConfig()
	cfg.Bucket = ""
	_, err = miniostore.New(cfg, log.NewStdLogger(io.Discard))
	require.Error(t, err)
}
