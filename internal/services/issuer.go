package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// 签名 URL 的默认有效期。
const (
	DefaultUploadURLTTL    = 360 * time.Second
	DefaultDownloadURLTTL  = 3000 * time.Second
	DefaultPartURLTTL      = time.Hour
	defaultPartConcurrency = 16
	defaultExtension       = "bin"
	maxExtensionLength     = 16
)

// ObjectStore 抽象对象存储的签名与 multipart 能力，由 s3store/miniostore/gcs 驱动实现。
type ObjectStore interface {
	Bucket() string
	Region() string
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	CreateMultipart(ctx context.Context, key, contentType string) (string, error)
	PresignPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error)
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []vo.CompletedPart) (string, error)
	AbortMultipart(ctx context.Context, key, uploadID string) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// IssuerConfig 控制签名 URL 有效期与分片签名并发度。
type IssuerConfig struct {
	UploadTTL       time.Duration
	DownloadTTL     time.Duration
	PartTTL         time.Duration
	PartConcurrency int
}

func (c IssuerConfig) withDefaults() IssuerConfig {
	if c.UploadTTL <= 0 {
		c.UploadTTL = DefaultUploadURLTTL
	}
	if c.DownloadTTL <= 0 {
		c.DownloadTTL = DefaultDownloadURLTTL
	}
	if c.PartTTL <= 0 {
		c.PartTTL = DefaultPartURLTTL
	}
	if c.PartConcurrency <= 0 {
		c.PartConcurrency = defaultPartConcurrency
	}
	return c
}

// Issuer 负责生成对象 Key 与各类签名 URL，自身不持有持久状态。
type Issuer struct {
	store   ObjectStore
	cfg     IssuerConfig
	now     func() time.Time
	newID   func() uuid.UUID
	metrics Metrics
	log     *log.Helper
}

// IssuerOption 定义 Issuer 的可选配置。
type IssuerOption func(*Issuer)

// WithIssuerClock 覆盖时间来源，便于测试。
func WithIssuerClock(clock func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if clock != nil {
			i.now = clock
		}
	}
}

// WithIDGenerator 覆盖 Key 中随机段的生成方式。
func WithIDGenerator(gen func() uuid.UUID) IssuerOption {
	return func(i *Issuer) {
		if gen != nil {
			i.newID = gen
		}
	}
}

// WithIssuerMetrics 注入指标记录器。
func WithIssuerMetrics(m Metrics) IssuerOption {
	return func(i *Issuer) {
		if m != nil {
			i.metrics = m
		}
	}
}

// NewIssuer 构造 Issuer。
func NewIssuer(store ObjectStore, cfg IssuerConfig, logger log.Logger, opts ...IssuerOption) (*Issuer, error) {
	if store == nil {
		return nil, errors.New("issuer: object store is required")
	}
	issuer := &Issuer{
		store:   store,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		newID:   uuid.New,
		metrics: NopMetrics{},
		log:     log.NewHelper(logger),
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// Bucket 返回底层对象存储的 bucket。
func (i *Issuer) Bucket() string {
	return i.store.Bucket()
}

// GenerateKey 生成 uploads/{毫秒时间戳}-{uuid}-{ownerID}.{ext} 形式的对象 Key。
func (i *Issuer) GenerateKey(fileName, ownerID string) string {
	return fmt.Sprintf("uploads/%d-%s-%s.%s", i.now().UnixMilli(), i.newID().String(), ownerID, FileExtension(fileName))
}

// FileExtension 取文件名最后一个点之后的部分作为扩展名并保留大小写；缺失或非法时返回 bin。
func FileExtension(fileName string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	idx := strings.LastIndex(base, ".")
	if idx <= 0 || idx == len(base)-1 {
		return defaultExtension
	}
	ext := base[idx+1:]
	if len(ext) > maxExtensionLength {
		return defaultExtension
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return defaultExtension
		}
	}
	return ext
}

// IssueUploadURL 生成单次 PUT 上传的签名 URL，ttl<=0 时使用默认值。
func (i *Issuer) IssueUploadURL(ctx context.Context, fileName, contentType, ownerID string, ttl time.Duration) (*vo.SingleUploadPlan, error) {
	if ttl <= 0 {
		ttl = i.cfg.UploadTTL
	}
	key := i.GenerateKey(fileName, ownerID)
	url, err := i.store.PresignPut(ctx, key, contentType, ttl)
	if err != nil {
		i.log.WithContext(ctx).Errorf("presign put failed: key=%s err=%v", key, err)
		return nil, ExternalServiceError(ReasonStorageUnavailable, "failed to generate upload url", err)
	}
	i.metrics.PresignedURL("put")
	return &vo.SingleUploadPlan{UploadURL: url, Key: key}, nil
}

// IssueDownloadURL 生成 GET 签名 URL，ttl<=0 时使用默认值。
func (i *Issuer) IssueDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ValidationError(ReasonUploadInvalid, "key is required")
	}
	if ttl <= 0 {
		ttl = i.cfg.DownloadTTL
	}
	url, err := i.store.PresignGet(ctx, key, ttl)
	if err != nil {
		i.log.WithContext(ctx).Errorf("presign get failed: key=%s err=%v", key, err)
		return "", ExternalServiceError(ReasonStorageUnavailable, "failed to generate download url", err)
	}
	i.metrics.PresignedURL("get")
	return url, nil
}

// InitiateMultipart 打开 multipart 会话并为 1..partsCount 每个分片签发 PUT URL。
func (i *Issuer) InitiateMultipart(ctx context.Context, fileName, contentType string, partsCount int32, ownerID string) (*vo.MultipartPlan, error) {
	if partsCount < 1 {
		return nil, ValidationError(ReasonPartsCountInvalid, "partsCount must be at least 1")
	}
	key := i.GenerateKey(fileName, ownerID)

	uploadID, err := i.store.CreateMultipart(ctx, key, contentType)
	if err != nil {
		i.log.WithContext(ctx).Errorf("create multipart failed: key=%s err=%v", key, err)
		return nil, ExternalServiceError(ReasonStorageUnavailable, "failed to initiate multipart upload", err)
	}
	if uploadID == "" {
		return nil, ExternalServiceError(ReasonStorageUnavailable, "failed to initiate multipart upload: missing upload id", nil)
	}

	parts := make([]vo.PartURL, partsCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.PartConcurrency)
	for n := int32(1); n <= partsCount; n++ {
		partNumber := n
		g.Go(func() error {
			url, err := i.store.PresignPart(gctx, key, uploadID, partNumber, i.cfg.PartTTL)
			if err != nil {
				return fmt.Errorf("presign part %d: %w", partNumber, err)
			}
			parts[partNumber-1] = vo.PartURL{PartNumber: partNumber, URL: url}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i.log.WithContext(ctx).Errorf("presign parts failed: key=%s upload_id=%s err=%v", key, uploadID, err)
		if abortErr := i.store.AbortMultipart(context.WithoutCancel(ctx), key, uploadID); abortErr != nil {
			i.log.WithContext(ctx).Warnf("abort multipart after presign failure failed: key=%s upload_id=%s err=%v", key, uploadID, abortErr)
		}
		return nil, ExternalServiceError(ReasonStorageUnavailable, "failed to generate part urls", err)
	}
	i.metrics.PresignedURL("part")

	return &vo.MultipartPlan{Key: key, UploadID: uploadID, Parts: parts}, nil
}

// CompleteMultipart 校验分片 ETag 后提交完成请求，返回最终对象位置。
// 任一分片缺失 ETag 时直接返回校验错误，不会调用对象存储。
func (i *Issuer) CompleteMultipart(ctx context.Context, key, uploadID string, parts []vo.CompletedPart) (string, error) {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(uploadID) == "" {
		return "", ValidationError(ReasonUploadInvalid, "key and uploadId are required")
	}
	if len(parts) == 0 {
		return "", ValidationError(ReasonUploadInvalid, "parts are required")
	}

	seen := make(map[int32]struct{}, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part.ETag) == "" {
			return "", ValidationError(ReasonPartETagMissing, "ETag missing for part %d", part.PartNumber)
		}
		if part.PartNumber < 1 || part.PartNumber > MaxMultipartParts {
			return "", ValidationError(ReasonUploadInvalid, "invalid part number %d", part.PartNumber)
		}
		if _, dup := seen[part.PartNumber]; dup {
			return "", ValidationError(ReasonUploadInvalid, "duplicate part number %d", part.PartNumber)
		}
		seen[part.PartNumber] = struct{}{}
	}

	ordered := make([]vo.CompletedPart, len(parts))
	copy(ordered, parts)
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].PartNumber < ordered[b].PartNumber })

	location, err := i.store.CompleteMultipart(ctx, key, uploadID, ordered)
	if err != nil {
		i.log.WithContext(ctx).Errorf("complete multipart failed: key=%s upload_id=%s err=%v", key, uploadID, err)
		i.metrics.MultipartCompleted("error")
		return "", ExternalServiceError(ReasonStorageUnavailable, "failed to complete multipart upload", err)
	}
	i.metrics.MultipartCompleted("ok")
	if location == "" {
		location = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", i.store.Bucket(), i.store.Region(), key)
	}
	return location, nil
}

// AbortMultipart 释放未完成的 multipart 会话。
func (i *Issuer) AbortMultipart(ctx context.Context, key, uploadID string) error {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(uploadID) == "" {
		return ValidationError(ReasonUploadInvalid, "key and uploadId are required")
	}
	if err := i.store.AbortMultipart(ctx, key, uploadID); err != nil {
		i.log.WithContext(ctx).Errorf("abort multipart failed: key=%s upload_id=%s err=%v", key, uploadID, err)
		i.metrics.MultipartCompleted("abort_error")
		return ExternalServiceError(ReasonStorageUnavailable, "failed to abort multipart upload", err)
	}
	i.metrics.MultipartCompleted("aborted")
	return nil
}

// UploadBytes 由服务端直接写入小对象（仅用于缩略图）。
func (i *Issuer) UploadBytes(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if err := i.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		i.log.WithContext(ctx).Errorf("put object failed: key=%s err=%v", key, err)
		return "", ExternalServiceError(ReasonStorageUnavailable, "failed to upload object", err)
	}
	return key, nil
}
