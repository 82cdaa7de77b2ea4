package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// 缩略图默认参数。
const (
	DefaultThumbnailWidth     = 1080
	DefaultThumbnailTimeout   = 2 * time.Minute
	DefaultThumbnailSourceTTL = 300 * time.Second
	thumbnailContentType      = "image/jpeg"
)

// ErrThumbnailUnavailable 表示本次未能生成缩略图。
var ErrThumbnailUnavailable = errors.New("thumbnail unavailable")

// FrameExtractor 从视频源截取单帧图片写入本地文件。
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, sourceURL, outputPath string, width int) error
}

// ThumbnailStore 回写缩略图 Key。
type ThumbnailStore interface {
	SetThumbnail(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, thumbnailKey string) error
}

// ThumbnailConfig 控制缩略图尺寸与超时。
type ThumbnailConfig struct {
	Width      int
	Timeout    time.Duration
	SourceTTL  time.Duration
	ScratchDir string
}

func (c ThumbnailConfig) withDefaults() ThumbnailConfig {
	if c.Width <= 0 {
		c.Width = DefaultThumbnailWidth
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultThumbnailTimeout
	}
	if c.SourceTTL <= 0 {
		c.SourceTTL = DefaultThumbnailSourceTTL
	}
	if c.ScratchDir == "" {
		c.ScratchDir = os.TempDir()
	}
	return c
}

// ThumbnailService 尽力生成缩略图，任何失败都只记录日志。
type ThumbnailService struct {
	issuer    *Issuer
	extractor FrameExtractor
	store     ThumbnailStore
	cfg       ThumbnailConfig
	metrics   Metrics
	log       *log.Helper
}

// NewThumbnailService 构造 ThumbnailService。
func NewThumbnailService(issuer *Issuer, extractor FrameExtractor, store ThumbnailStore, cfg ThumbnailConfig, logger log.Logger, metrics Metrics) (*ThumbnailService, error) {
	switch {
	case issuer == nil:
		return nil, errors.New("thumbnail service: issuer is required")
	case extractor == nil:
		return nil, errors.New("thumbnail service: frame extractor is required")
	case store == nil:
		return nil, errors.New("thumbnail service: store is required")
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &ThumbnailService{
		issuer:    issuer,
		extractor: extractor,
		store:     store,
		cfg:       cfg.withDefaults(),
		metrics:   metrics,
		log:       log.NewHelper(logger),
	}, nil
}

// ThumbnailKey 返回 thumbnails/{ownerID}/thumb-{源文件名去扩展名}.jpg。
func ThumbnailKey(inputKey, ownerID string) string {
	base := path.Base(inputKey)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return fmt.Sprintf("%s%s/thumb-%s.jpg", thumbnailKeyPrefix, ownerID, base)
}

// Generate 截帧并上传缩略图，成功返回 Key；任一步骤失败返回 ok=false。
func (s *ThumbnailService) Generate(ctx context.Context, inputKey, ownerID string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	key, err := s.generate(ctx, inputKey, ownerID)
	if err != nil {
		s.metrics.ThumbnailResult("failed")
		s.log.WithContext(ctx).Warnf("thumbnail generation failed: input_key=%s err=%v", inputKey, err)
		return "", false
	}
	s.metrics.ThumbnailResult("ok")
	return key, true
}

func (s *ThumbnailService) generate(ctx context.Context, inputKey, ownerID string) (string, error) {
	sourceURL, err := s.issuer.IssueDownloadURL(ctx, inputKey, s.cfg.SourceTTL)
	if err != nil {
		return "", fmt.Errorf("presign source: %w", err)
	}

	scratch, err := os.CreateTemp(s.cfg.ScratchDir, "thumb-*.jpg")
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	scratchPath := scratch.Name()
	_ = scratch.Close()
	defer func() {
		if rmErr := os.Remove(scratchPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.log.WithContext(ctx).Warnf("remove scratch file failed: path=%s err=%v", scratchPath, rmErr)
		}
	}()

	if err := s.extractor.ExtractFrame(ctx, sourceURL, scratchPath, s.cfg.Width); err != nil {
		return "", fmt.Errorf("extract frame: %w", err)
	}
	data, err := os.ReadFile(scratchPath)
	if err != nil {
		return "", fmt.Errorf("read frame: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("extracted frame is empty")
	}

	key := ThumbnailKey(inputKey, ownerID)
	if _, err := s.issuer.UploadBytes(ctx, key, data, thumbnailContentType); err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}
	return key, nil
}

// Process 生成缩略图并回写到视频记录。
func (s *ThumbnailService) Process(ctx context.Context, job vo.ThumbnailJob) (string, error) {
	key, ok := s.Generate(ctx, job.InputKey, job.OwnerID)
	if !ok {
		return "", ErrThumbnailUnavailable
	}
	if err := s.store.SetThumbnail(ctx, nil, job.VideoID, key); err != nil {
		s.log.WithContext(ctx).Errorf("persist thumbnail failed: video_id=%s key=%s err=%v", job.VideoID, key, err)
		return "", fmt.Errorf("persist thumbnail: %w", err)
	}
	s.log.WithContext(ctx).Infof("thumbnail stored: video_id=%s key=%s", job.VideoID, key)
	return key, nil
}
