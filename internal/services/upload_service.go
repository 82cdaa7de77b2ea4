package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// 分片与上传大小的默认约束（与 S3 multipart 协议一致）。
const (
	MaxMultipartParts         int32 = 10000
	DefaultMinPartSize        int64 = 5 << 20
	DefaultMaxPartSize        int64 = 5 << 30
	DefaultPreferredPartSize  int64 = 10 << 20
	DefaultSingleUploadLimit  int64 = 5 << 30
	DefaultMultipartThreshold int64 = 100 << 20
)

const (
	contentTypeOctetStream = "application/octet-stream"
	uploadKeyPrefix        = "uploads/"
	thumbnailKeyPrefix     = "thumbnails/"
	uuidTextLength         = 36
)

// UploadLimits 描述服务端对上传策略的约束。
type UploadLimits struct {
	MinPartSize        int64
	MaxPartSize        int64
	PreferredPartSize  int64
	MaxParts           int32
	SingleUploadLimit  int64
	MultipartThreshold int64
}

func (l UploadLimits) withDefaults() UploadLimits {
	if l.MinPartSize <= 0 {
		l.MinPartSize = DefaultMinPartSize
	}
	if l.MaxPartSize <= 0 {
		l.MaxPartSize = DefaultMaxPartSize
	}
	if l.PreferredPartSize <= 0 {
		l.PreferredPartSize = DefaultPreferredPartSize
	}
	if l.PreferredPartSize < l.MinPartSize {
		l.PreferredPartSize = l.MinPartSize
	}
	if l.MaxParts <= 0 || l.MaxParts > MaxMultipartParts {
		l.MaxParts = MaxMultipartParts
	}
	if l.SingleUploadLimit <= 0 {
		l.SingleUploadLimit = DefaultSingleUploadLimit
	}
	if l.MultipartThreshold <= 0 {
		l.MultipartThreshold = DefaultMultipartThreshold
	}
	return l
}

// partsRange 返回给定文件大小下合法的分片数区间。
func (l UploadLimits) partsRange(size int64) (int32, int32) {
	minParts := ceilDiv(size, l.MaxPartSize)
	if minParts < 1 {
		minParts = 1
	}
	maxParts := size / l.MinPartSize
	if maxParts < 1 {
		maxParts = 1
	}
	if maxParts > int64(l.MaxParts) {
		maxParts = int64(l.MaxParts)
	}
	return int32(minParts), int32(maxParts)
}

// StartSingleUploadInput 为单次上传的输入。
type StartSingleUploadInput struct {
	OwnerID     string
	FileName    string
	ContentType string
	FileSize    *int64
}

// StartMultipartUploadInput 为分片上传初始化的输入。
type StartMultipartUploadInput struct {
	OwnerID     string
	FileName    string
	ContentType string
	PartsCount  int32
	FileSize    *int64
}

// CompleteUploadInput 为分片上传完成的输入。
type CompleteUploadInput struct {
	OwnerID  string
	Key      string
	UploadID string
	Parts    []vo.CompletedPart
}

// AbortUploadInput 为放弃分片上传的输入。
type AbortUploadInput struct {
	OwnerID  string
	Key      string
	UploadID string
}

// UploadService 编排上传流程，自身不持有状态。
type UploadService struct {
	issuer *Issuer
	limits UploadLimits
	log    *log.Helper
}

// NewUploadService 创建 UploadService。
func NewUploadService(issuer *Issuer, limits UploadLimits, logger log.Logger) (*UploadService, error) {
	if issuer == nil {
		return nil, errors.New("upload service: issuer is required")
	}
	return &UploadService{
		issuer: issuer,
		limits: limits.withDefaults(),
		log:    log.NewHelper(logger),
	}, nil
}

// StartSingleUpload 签发单次 PUT 上传 URL。
func (s *UploadService) StartSingleUpload(ctx context.Context, input StartSingleUploadInput) (*vo.SingleUploadPlan, error) {
	if err := s.validateFile(input.OwnerID, input.FileName, input.ContentType); err != nil {
		return nil, err
	}
	if input.FileSize != nil {
		if *input.FileSize <= 0 {
			return nil, ValidationError(ReasonUploadInvalid, "fileSize must be positive")
		}
		if *input.FileSize > s.limits.SingleUploadLimit {
			return nil, ValidationError(ReasonUploadInvalid, "fileSize %d exceeds single upload limit %d, use multipart upload", *input.FileSize, s.limits.SingleUploadLimit)
		}
	}
	return s.issuer.IssueUploadURL(ctx, input.FileName, normalizeContentType(input.ContentType), input.OwnerID, 0)
}

// StartMultipartUpload 校验分片数后打开 multipart 会话。
func (s *UploadService) StartMultipartUpload(ctx context.Context, input StartMultipartUploadInput) (*vo.MultipartPlan, error) {
	if err := s.validateFile(input.OwnerID, input.FileName, input.ContentType); err != nil {
		return nil, err
	}
	if err := s.validatePartsCount(input.PartsCount, input.FileSize); err != nil {
		return nil, err
	}
	plan, err := s.issuer.InitiateMultipart(ctx, input.FileName, normalizeContentType(input.ContentType), input.PartsCount, input.OwnerID)
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Infof("multipart upload initiated: key=%s upload_id=%s parts=%d", plan.Key, plan.UploadID, len(plan.Parts))
	return plan, nil
}

// CompleteUpload 完成分片上传并返回最终对象位置。
func (s *UploadService) CompleteUpload(ctx context.Context, input CompleteUploadInput) (string, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return "", AuthenticationError("user id is required")
	}
	if !OwnsKey(input.Key, input.OwnerID) {
		return "", ForbiddenError(ReasonKeyNotOwned, "object key does not belong to caller")
	}
	return s.issuer.CompleteMultipart(ctx, input.Key, input.UploadID, input.Parts)
}

// AbortUpload 放弃分片上传，释放对象存储中的已上传分片。
func (s *UploadService) AbortUpload(ctx context.Context, input AbortUploadInput) error {
	if strings.TrimSpace(input.OwnerID) == "" {
		return AuthenticationError("user id is required")
	}
	if !OwnsKey(input.Key, input.OwnerID) {
		return ForbiddenError(ReasonKeyNotOwned, "object key does not belong to caller")
	}
	return s.issuer.AbortMultipart(ctx, input.Key, input.UploadID)
}

// IssueDownload 为调用方自己的对象签发下载 URL。
func (s *UploadService) IssueDownload(ctx context.Context, ownerID, key string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", AuthenticationError("user id is required")
	}
	if strings.TrimSpace(key) == "" {
		return "", ValidationError(ReasonUploadInvalid, "key is required")
	}
	if !OwnsKey(key, ownerID) {
		return "", ForbiddenError(ReasonKeyNotOwned, "object key does not belong to caller")
	}
	return s.issuer.IssueDownloadURL(ctx, key, 0)
}

// Plan 根据文件大小给出上传策略建议。
func (s *UploadService) Plan(fileSize int64) (*vo.UploadPlan, error) {
	if fileSize <= 0 {
		return nil, ValidationError(ReasonUploadInvalid, "fileSize must be positive")
	}
	maxTotal := s.limits.MaxPartSize * int64(s.limits.MaxParts)
	if fileSize > maxTotal {
		return nil, ValidationError(ReasonUploadInvalid, "fileSize %d exceeds maximum object size %d", fileSize, maxTotal)
	}
	minParts, maxParts := s.limits.partsRange(fileSize)
	if fileSize < s.limits.MultipartThreshold && fileSize <= s.limits.SingleUploadLimit {
		return &vo.UploadPlan{
			Strategy:      vo.UploadStrategySingle,
			FileSize:      fileSize,
			PartsCount:    1,
			MinPartsCount: minParts,
			MaxPartsCount: maxParts,
		}, nil
	}

	partSize := s.limits.PreferredPartSize
	if ceilDiv(fileSize, partSize) > int64(s.limits.MaxParts) {
		partSize = ceilDiv(fileSize, int64(s.limits.MaxParts))
	}
	parts := int32(ceilDiv(fileSize, partSize))
	if parts < minParts {
		parts = minParts
	}
	if parts > maxParts {
		parts = maxParts
	}
	return &vo.UploadPlan{
		Strategy:      vo.UploadStrategyMultipart,
		FileSize:      fileSize,
		PartSize:      ceilDiv(fileSize, int64(parts)),
		PartsCount:    parts,
		MinPartsCount: minParts,
		MaxPartsCount: maxParts,
	}, nil
}

func (s *UploadService) validateFile(ownerID, fileName, contentType string) error {
	if strings.TrimSpace(ownerID) == "" {
		return AuthenticationError("user id is required")
	}
	if strings.TrimSpace(fileName) == "" {
		return ValidationError(ReasonUploadInvalid, "fileName is required")
	}
	ct := normalizeContentType(contentType)
	if ct == "" {
		return ValidationError(ReasonUploadInvalid, "fileType is required")
	}
	if !strings.HasPrefix(ct, "video/") && ct != contentTypeOctetStream {
		return ValidationError(ReasonUploadInvalid, "unsupported fileType %q", contentType)
	}
	return nil
}

func (s *UploadService) validatePartsCount(count int32, fileSize *int64) error {
	if count < 1 || count > s.limits.MaxParts {
		return ValidationError(ReasonPartsCountInvalid, "partsCount must be between 1 and %d", s.limits.MaxParts)
	}
	if fileSize == nil {
		return nil
	}
	if *fileSize <= 0 {
		return ValidationError(ReasonUploadInvalid, "fileSize must be positive")
	}
	minParts, maxParts := s.limits.partsRange(*fileSize)
	if count < minParts || count > maxParts {
		return ValidationError(ReasonPartsCountInvalid, "partsCount %d inconsistent with fileSize %d (expected %d..%d)", count, *fileSize, minParts, maxParts)
	}
	return nil
}

// OwnsKey 判断对象 Key 是否归属于 ownerID。
// uploads/ 下按 {毫秒时间戳}-{uuid}-{ownerID}.{ext} 精确解析；thumbnails/ 下要求 thumbnails/{ownerID}/{文件名}。
func OwnsKey(key, ownerID string) bool {
	if ownerID == "" || strings.Contains(key, "..") {
		return false
	}
	if rest, ok := strings.CutPrefix(key, uploadKeyPrefix); ok {
		owner, ok := uploadKeyOwner(rest)
		return ok && owner == ownerID
	}
	if rest, ok := strings.CutPrefix(key, thumbnailKeyPrefix); ok {
		dir, file, ok := strings.Cut(rest, "/")
		return ok && dir == ownerID && file != "" && !strings.Contains(file, "/")
	}
	return false
}

// uploadKeyOwner 从 uploads/ 之后的部分取出 ownerID，格式不符时返回 false。
func uploadKeyOwner(name string) (string, bool) {
	if strings.Contains(name, "/") {
		return "", false
	}
	millis, rest, ok := strings.Cut(name, "-")
	if !ok || millis == "" || strings.Trim(millis, "0123456789") != "" {
		return "", false
	}
	if len(rest) <= uuidTextLength || rest[uuidTextLength] != '-' {
		return "", false
	}
	if _, err := uuid.Parse(rest[:uuidTextLength]); err != nil {
		return "", false
	}
	rest = rest[uuidTextLength+1:]
	idx := strings.LastIndex(rest, ".")
	if idx <= 0 || idx == len(rest)-1 {
		return "", false
	}
	return rest[:idx], true
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
