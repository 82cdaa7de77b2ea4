package vo

import (
	"time"

	"github.com/google/uuid"
)

// ThumbnailJob 描述一次缩略图生成任务。
type ThumbnailJob struct {
	VideoID    uuid.UUID `json:"videoId"`
	InputKey   string    `json:"inputKey"`
	OwnerID    string    `json:"ownerId"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// TranscodeJob 描述投递给外部转码 worker 的任务。
type TranscodeJob struct {
	VideoID  uuid.UUID `json:"videoId"`
	InputKey string    `json:"inputKey"`
	Bucket   string    `json:"bucket"`
	OwnerID  string    `json:"ownerId"`
	Attempt  int32     `json:"attempt"`
}

// WorkerStatusReport 为 worker 回报的状态事件，videoId 字段实际承载 input key。
type WorkerStatusReport struct {
	InputKey     string  `json:"videoId"`
	Status       string  `json:"status"`
	TaskID       *string `json:"taskId,omitempty"`
	OutputKey    *string `json:"outputKey,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
}
