// Package miniostore 基于 minio-go 实现 S3 兼容存储（本地开发使用 MinIO）。
package miniostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store 使用 minio.Core 访问低层 multipart API。
type Store struct {
	core   *minio.Core
	bucket string
	region string
	log    *log.Helper
}

// New 创建 Store；Region 必须给出，否则签名前会发起 bucket location 查询。
func New(cfg configloader.StorageConfig, logger log.Logger) (*Store, error) {
	if cfg.MinIO.Endpoint == "" {
		return nil, errors.New("miniostore: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("miniostore: bucket is required")
	}
	core, err := minio.NewCore(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connection: %w", err)
	}
	return &Store{
		core:   core,
		bucket: cfg.Bucket,
		region: cfg.Region,
		log:    log.NewHelper(logger),
	}, nil
}

// Bucket 返回 bucket 名称。
func (s *Store) Bucket() string { return s.bucket }

// Region 返回区域。
func (s *Store) Region() string { return s.region }

// PresignPut 签发单次 PUT URL，Content-Type 作为签名头。
func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}
	u, err := s.core.PresignHeader(ctx, http.MethodPut, s.bucket, key, ttl, nil, headers)
	if err != nil {
		s.log.WithContext(ctx).Errorf("presign put failed: bucket=%s key=%s err=%v", s.bucket, key, err)
		return "", fmt.Errorf("presign put: %w", err)
	}
	return u.String(), nil
}

// PresignGet 签发 GET URL。
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.core.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		s.log.WithContext(ctx).Errorf("presign get failed: bucket=%s key=%s err=%v", s.bucket, key, err)
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

// CreateMultipart 打开 multipart 会话。
func (s *Store) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	uploadID, err := s.core.NewMultipartUpload(ctx, s.bucket, key, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("new multipart upload: %w", err)
	}
	return uploadID, nil
}

// PresignPart 签发分片 PUT URL。
func (s *Store) PresignPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	params := url.Values{
		"partNumber": {strconv.Itoa(int(partNumber))},
		"uploadId":   {uploadID},
	}
	u, err := s.core.Presign(ctx, http.MethodPut, s.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign part %d: %w", partNumber, err)
	}
	return u.String(), nil
}

// CompleteMultipart 合并分片。
func (s *Store) CompleteMultipart(ctx context.Context, key, uploadID string, parts []vo.CompletedPart) (string, error) {
	completed := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, minio.CompletePart{PartNumber: int(p.PartNumber), ETag: p.ETag})
	}
	info, err := s.core.CompleteMultipartUpload(ctx, s.bucket, key, uploadID, completed, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("complete multipart upload: %w", err)
	}
	return info.Location, nil
}

// AbortMultipart 放弃 multipart 会话。
func (s *Store) AbortMultipart(ctx context.Context, key, uploadID string) error {
	if err := s.core.AbortMultipartUpload(ctx, s.bucket, key, uploadID); err != nil {
		return fmt.Errorf("abort multipart upload: %w", err)
	}
	return nil
}

// Put 写入服务端生成的对象。
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.core.Client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}
