package dto

import (
	"strings"

	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/google/uuid"
)

// CreateVideoRecordRequest 对应 POST /video/create-videorecord。
type CreateVideoRecordRequest struct {
	OriginalFileName string   `json:"originalFileName" validate:"required"`
	S3InputKey       string   `json:"s3InputKey" validate:"required"`
	Duration         *float64 `json:"duration,omitempty" validate:"omitempty,gte=0"`
	Size             *int64   `json:"size,omitempty" validate:"omitempty,gte=0"`
	Resolution       *string  `json:"resolution,omitempty"`
	Format           *string  `json:"format,omitempty"`
}

// ToInput 转换为服务层输入。
func (r CreateVideoRecordRequest) ToInput(ownerID string) services.CreateRecordInput {
	return services.CreateRecordInput{
		OwnerID:          ownerID,
		OriginalFileName: strings.TrimSpace(r.OriginalFileName),
		InputKey:         strings.TrimSpace(r.S3InputKey),
		Duration:         r.Duration,
		Size:             r.Size,
		Resolution:       r.Resolution,
		Format:           r.Format,
	}
}

// UpdateVideoStatusRequest 对应 PATCH /video/update-video-status。
type UpdateVideoStatusRequest struct {
	VideoID string `json:"videoId" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

// ParsedVideoID 解析 videoId。
func (r UpdateVideoStatusRequest) ParsedVideoID() (uuid.UUID, error) {
	return ParseVideoID(r.VideoID)
}

// WorkerStatusRequest 对应 PATCH /video/update-video-status-worker，videoId 字段承载 input key。
type WorkerStatusRequest struct {
	VideoID      string  `json:"videoId" validate:"required"`
	Status       string  `json:"status" validate:"required"`
	TaskID       *string `json:"taskId,omitempty"`
	OutputKey    *string `json:"outputKey,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
}

// ToInput 转换为服务层输入。
func (r WorkerStatusRequest) ToInput() services.WorkerStatusInput {
	return services.WorkerStatusInput{
		InputKey:     strings.TrimSpace(r.VideoID),
		Status:       strings.TrimSpace(r.Status),
		TaskID:       r.TaskID,
		OutputKey:    r.OutputKey,
		ErrorMessage: r.ErrorMessage,
	}
}

// ParseVideoID 解析 video id，失败返回 Validation 错误。
func ParseVideoID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, services.ValidationError(services.ReasonVideoInvalid, "invalid videoId %q", raw)
	}
	return id, nil
}
