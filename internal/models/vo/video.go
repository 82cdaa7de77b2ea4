// Package vo 定义视图对象（View Objects），用于向上层传递业务数据。
// VO 对象由 Service 层返回，经 Controller 层渲染为 JSON 响应，隔离内部数据结构。
package vo

import (
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/po"
	"github.com/google/uuid"
)

// Video 为视频记录的对外视图。
type Video struct {
	VideoID          uuid.UUID  `json:"id"`
	UserID           string     `json:"userId"`
	OriginalFileName string     `json:"originalFileName"`
	InputKey         string     `json:"s3InputKey"`
	OutputKey        *string    `json:"s3OutputKey"`
	Duration         *float64   `json:"duration"`
	Size             *int64     `json:"size"`
	Resolution       *string    `json:"resolution"`
	Format           *string    `json:"format"`
	ThumbnailKey     *string    `json:"thumbnailKey"`
	Status           string     `json:"status"`
	ErrorMessage     *string    `json:"errorMessage"`
	TaskID           *string    `json:"taskId"`
	StartedAt        *time.Time `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt"`
	MaxRetries       int32      `json:"maxRetries"`
	CurrRetries      int32      `json:"currRetries"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// VideoDetail 在 Video 基础上附带播放与缩略图的临时访问 URL。
type VideoDetail struct {
	Video
	PlaybackURL  string `json:"playbackUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// NewVideo 从持久化实体构造视图。
func NewVideo(video *po.Video) *Video {
	if video == nil {
		return nil
	}
	return &Video{
		VideoID:          video.VideoID,
		UserID:           video.UserID,
		OriginalFileName: video.OriginalFileName,
		InputKey:         video.InputKey,
		OutputKey:        video.OutputKey,
		Duration:         video.Duration,
		Size:             video.Size,
		Resolution:       video.Resolution,
		Format:           video.Format,
		ThumbnailKey:     video.ThumbnailKey,
		Status:           string(video.Status),
		ErrorMessage:     video.ErrorMessage,
		TaskID:           video.TaskID,
		StartedAt:        video.StartedAt,
		CompletedAt:      video.CompletedAt,
		MaxRetries:       video.MaxRetries,
		CurrRetries:      video.CurrRetries,
		CreatedAt:        video.CreatedAt,
		UpdatedAt:        video.UpdatedAt,
	}
}

// NewVideos 批量转换。
func NewVideos(videos []*po.Video) []*Video {
	out := make([]*Video, 0, len(videos))
	for _, v := range videos {
		if view := NewVideo(v); view != nil {
			out = append(out, view)
		}
	}
	return out
}
