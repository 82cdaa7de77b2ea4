// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射数据库表结构，不直接暴露给上层业务逻辑。
package po

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VideoStatus 表示视频的处理生命周期状态。
type VideoStatus string

// 视频状态常量定义
const (
	VideoStatusNotUploaded VideoStatus = "NOT_UPLOADED" // 记录已创建，上传尚未确认
	VideoStatusUploaded    VideoStatus = "UPLOADED"     // 原始文件已落地对象存储
	VideoStatusInQueue     VideoStatus = "IN_QUEUE"     // 已投递转码队列
	VideoStatusInLambda    VideoStatus = "IN_LAMBDA"    // 转码函数已接单
	VideoStatusProcessing  VideoStatus = "PROCESSING"   // 转码进行中
	VideoStatusCompleted   VideoStatus = "COMPLETED"    // 转码完成（终态）
	VideoStatusFailed      VideoStatus = "FAILED"       // 转码失败（终态）
)

// AllVideoStatuses 按生命周期顺序列出全部状态。
var AllVideoStatuses = []VideoStatus{
	VideoStatusNotUploaded,
	VideoStatusUploaded,
	VideoStatusInQueue,
	VideoStatusInLambda,
	VideoStatusProcessing,
	VideoStatusCompleted,
	VideoStatusFailed,
}

// ParseVideoStatus 解析状态字符串（大小写不敏感），未知值返回错误。
func ParseVideoStatus(raw string) (VideoStatus, error) {
	candidate := VideoStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, status := range AllVideoStatuses {
		if status == candidate {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown video status %q", raw)
}

// IsTerminal 判断状态是否为终态。
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

// DefaultMaxRetries 为新建视频的默认最大重试次数。
const DefaultMaxRetries int32 = 5

// Video 表示 videos 表的数据库实体。
type Video struct {
	VideoID          uuid.UUID   `db:"video_id"`           // 主键（UUID v4）
	UserID           string      `db:"user_id"`            // 所属用户 ID
	OriginalFileName string      `db:"original_file_name"` // 客户端上传时的原始文件名
	InputKey         string      `db:"input_key"`          // 原始文件对象 Key（唯一）
	OutputKey        *string     `db:"output_key"`         // 转码产物 Key，由 worker 回写
	Duration         *float64    `db:"duration"`           // 时长（秒）
	Size             *int64      `db:"size"`               // 文件大小（字节）
	Resolution       *string     `db:"resolution"`         // 分辨率（如 "1920x1080"）
	Format           *string     `db:"format"`             // 容器格式
	ThumbnailKey     *string     `db:"thumbnail_key"`      // 缩略图对象 Key
	Status           VideoStatus `db:"status"`             // 当前状态
	ErrorMessage     *string     `db:"error_message"`      // 最近一次失败原因
	TaskID           *string     `db:"task_id"`            // 外部转码任务 ID
	StartedAt        *time.Time  `db:"started_at"`         // 进入 PROCESSING 的时间
	CompletedAt      *time.Time  `db:"completed_at"`       // 进入终态的时间
	MaxRetries       int32       `db:"max_retries"`        // 允许的最大重试次数
	CurrRetries      int32       `db:"curr_retries"`       // 已发生的失败次数
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}
