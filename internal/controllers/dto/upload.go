// Package dto 定义 HTTP 请求体与查询参数，并负责转换为服务层输入。
package dto

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/services"
)

// SingleUploadQuery 对应 GET /video/get-presigned-single。
type SingleUploadQuery struct {
	FileName string `validate:"required"`
	FileType string `validate:"required"`
	FileSize *int64 `validate:"omitempty,gt=0"`
}

// ParseSingleUploadQuery 解析查询参数。
func ParseSingleUploadQuery(q url.Values) (SingleUploadQuery, error) {
	out := SingleUploadQuery{
		FileName: strings.TrimSpace(q.Get("fileName")),
		FileType: strings.TrimSpace(q.Get("fileType")),
	}
	size, err := optionalInt64(q, "fileSize")
	if err != nil {
		return SingleUploadQuery{}, err
	}
	out.FileSize = size
	return out, nil
}

// ToInput 转换为服务层输入。
func (q SingleUploadQuery) ToInput(ownerID string) services.StartSingleUploadInput {
	return services.StartSingleUploadInput{
		OwnerID:     ownerID,
		FileName:    q.FileName,
		ContentType: q.FileType,
		FileSize:    q.FileSize,
	}
}

// MultipartUploadRequest 对应 POST /video/get-presigned-multipart。
type MultipartUploadRequest struct {
	FileName   string `json:"fileName" validate:"required"`
	FileType   string `json:"fileType" validate:"required"`
	PartsCount int32  `json:"partsCount" validate:"gte=1,lte=10000"`
	FileSize   *int64 `json:"fileSize,omitempty" validate:"omitempty,gt=0"`
}

// ToInput 转换为服务层输入。
func (r MultipartUploadRequest) ToInput(ownerID string) services.StartMultipartUploadInput {
	return services.StartMultipartUploadInput{
		OwnerID:     ownerID,
		FileName:    strings.TrimSpace(r.FileName),
		ContentType: strings.TrimSpace(r.FileType),
		PartsCount:  r.PartsCount,
		FileSize:    r.FileSize,
	}
}

// CompleteMultipartRequest 对应 POST /video/complete-multipart。
// 分片 ETag 的完整性由 Issuer 校验，以便返回具体的分片编号。
type CompleteMultipartRequest struct {
	Key      string             `json:"key" validate:"required"`
	UploadID string             `json:"uploadId" validate:"required"`
	Parts    []vo.CompletedPart `json:"parts" validate:"required,min=1"`
}

// ToInput 转换为服务层输入。
func (r CompleteMultipartRequest) ToInput(ownerID string) services.CompleteUploadInput {
	return services.CompleteUploadInput{
		OwnerID:  ownerID,
		Key:      strings.TrimSpace(r.Key),
		UploadID: strings.TrimSpace(r.UploadID),
		Parts:    r.Parts,
	}
}

// AbortMultipartRequest 对应 POST /video/abort-multipart。
type AbortMultipartRequest struct {
	Key      string `json:"key" validate:"required"`
	UploadID string `json:"uploadId" validate:"required"`
}

// ToInput 转换为服务层输入。
func (r AbortMultipartRequest) ToInput(ownerID string) services.AbortUploadInput {
	return services.AbortUploadInput{
		OwnerID:  ownerID,
		Key:      strings.TrimSpace(r.Key),
		UploadID: strings.TrimSpace(r.UploadID),
	}
}

// CompleteMultipartResponse 为完成分片上传的响应数据。
type CompleteMultipartResponse struct {
	FinalURL string `json:"finalUrl"`
	Key      string `json:"key"`
}

// DownloadResponse 为下载 URL 的响应数据。
type DownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
	Key         string `json:"key"`
}

// ParseFileSize 解析 upload-plan 的 fileSize 参数。
func ParseFileSize(q url.Values) (int64, error) {
	size, err := optionalInt64(q, "fileSize")
	if err != nil {
		return 0, err
	}
	if size == nil {
		return 0, services.ValidationError(services.ReasonUploadInvalid, "fileSize is required")
	}
	return *size, nil
}

func optionalInt64(q url.Values, name string) (*int64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, services.ValidationError(services.ReasonUploadInvalid, "%s must be an integer", name)
	}
	return &v, nil
}
