// Package s3store 基于 aws-sdk-go-v2 实现对象存储签名与 multipart 能力。
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-kratos/kratos/v2/log"
)

// Store 封装 s3.Client 与 PresignClient。
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	region  string
	log     *log.Helper
}

// New 使用已有的 s3.Client 构造 Store。
func New(client *s3.Client, bucket, region string, logger log.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New("s3store: client is required")
	}
	if bucket == "" {
		return nil, errors.New("s3store: bucket is required")
	}
	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		region:  region,
		log:     log.NewHelper(logger),
	}, nil
}

// LoadAWSConfig 按存储配置加载 AWS 配置；显式给出 AK/SK 时使用静态凭据。
func LoadAWSConfig(ctx context.Context, region, accessKeyID, secretAccessKey string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// NewClient 根据配置创建 s3.Client，支持自定义 endpoint 与 path-style。
func NewClient(awsCfg aws.Config, cfg configloader.S3Config) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
}

// ProvideStore 供 Wire 注入使用。
func ProvideStore(ctx context.Context, cfg configloader.StorageConfig, logger log.Logger) (*Store, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg.Region, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
	if err != nil {
		return nil, err
	}
	return New(NewClient(awsCfg, cfg.S3), cfg.Bucket, cfg.Region, logger)
}

// Bucket 返回 bucket 名称。
func (s *Store) Bucket() string { return s.bucket }

// Region 返回 bucket 所在区域。
func (s *Store) Region() string { return s.region }

// PresignPut 签发单次 PUT 上传 URL，Content-Type 参与签名。
func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		s.log.WithContext(ctx).Errorf("presign put failed: bucket=%s key=%s err=%v", s.bucket, key, err)
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// PresignGet 签发 GET 下载 URL。
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		s.log.WithContext(ctx).Errorf("presign get failed: bucket=%s key=%s err=%v", s.bucket, key, err)
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// CreateMultipart 打开 multipart 会话并返回 UploadId。
func (s *Store) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	out, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("create multipart upload: %w", err)
	}
	return aws.ToString(out.UploadId), nil
}

// PresignPart 签发单个分片的 PUT URL。
func (s *Store) PresignPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign part %d: %w", partNumber, err)
	}
	return req.URL, nil
}

// CompleteMultipart 合并分片，返回对象位置（可能为空）。
func (s *Store) CompleteMultipart(ctx context.Context, key, uploadID string, parts []vo.CompletedPart) (string, error) {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		})
	}
	out, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return "", fmt.Errorf("complete multipart upload: %w", err)
	}
	return aws.ToString(out.Location), nil
}

// AbortMultipart 放弃 multipart 会话。
func (s *Store) AbortMultipart(ctx context.Context, key, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("abort multipart upload: %w", err)
	}
	return nil
}

// Put 直接写入服务端生成的对象。
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}
