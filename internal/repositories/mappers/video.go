// Package mappers 提供仓储层的模型转换工具，将存储层结果映射为领域实体。
package mappers

import (
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/po"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// VideoColumns 为 videos 表查询的列顺序，与 VideoRow.ScanTargets 一一对应。
const VideoColumns = `video_id, user_id, original_file_name, input_key, output_key, duration, size,
	resolution, format, thumbnail_key, status, error_message, task_id, started_at, completed_at,
	max_retries, curr_retries, created_at, updated_at`

// VideoRow 为 videos 表一行的原始扫描结果。
type VideoRow struct {
	VideoID          uuid.UUID
	UserID           string
	OriginalFileName string
	InputKey         string
	OutputKey        pgtype.Text
	Duration         pgtype.Float8
	Size             pgtype.Int8
	Resolution       pgtype.Text
	Format           pgtype.Text
	ThumbnailKey     pgtype.Text
	Status           string
	ErrorMessage     pgtype.Text
	TaskID           pgtype.Text
	StartedAt        pgtype.Timestamptz
	CompletedAt      pgtype.Timestamptz
	MaxRetries       int32
	CurrRetries      int32
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

// ScanTargets 返回按 VideoColumns 顺序排列的扫描目标。
func (r *VideoRow) ScanTargets() []any {
	return []any{
		&r.VideoID, &r.UserID, &r.OriginalFileName, &r.InputKey, &r.OutputKey, &r.Duration, &r.Size,
		&r.Resolution, &r.Format, &r.ThumbnailKey, &r.Status, &r.ErrorMessage, &r.TaskID,
		&r.StartedAt, &r.CompletedAt, &r.MaxRetries, &r.CurrRetries, &r.CreatedAt, &r.UpdatedAt,
	}
}

// VideoFromRow 将扫描结果转换为 po.Video。
func VideoFromRow(row VideoRow) *po.Video {
	return &po.Video{
		VideoID:          row.VideoID,
		UserID:           row.UserID,
		OriginalFileName: row.OriginalFileName,
		InputKey:         row.InputKey,
		OutputKey:        TextPtr(row.OutputKey),
		Duration:         Float8Ptr(row.Duration),
		Size:             Int8Ptr(row.Size),
		Resolution:       TextPtr(row.Resolution),
		Format:           TextPtr(row.Format),
		ThumbnailKey:     TextPtr(row.ThumbnailKey),
		Status:           po.VideoStatus(row.Status),
		ErrorMessage:     TextPtr(row.ErrorMessage),
		TaskID:           TextPtr(row.TaskID),
		StartedAt:        TimestamptzPtr(row.StartedAt),
		CompletedAt:      TimestamptzPtr(row.CompletedAt),
		MaxRetries:       row.MaxRetries,
		CurrRetries:      row.CurrRetries,
		CreatedAt:        mustTimestamptz(row.CreatedAt),
		UpdatedAt:        mustTimestamptz(row.UpdatedAt),
	}
}

// ToPgText 将可空字符串转换为 pgtype.Text。
func ToPgText(value *string) pgtype.Text {
	if value == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *value, Valid: true}
}

// ToPgFloat8 将可空浮点转换为 pgtype.Float8。
func ToPgFloat8(value *float64) pgtype.Float8 {
	if value == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *value, Valid: true}
}

// ToPgInt8 将可空整数转换为 pgtype.Int8。
func ToPgInt8(value *int64) pgtype.Int8 {
	if value == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *value, Valid: true}
}

// ToPgInt4 将可空整数转换为 pgtype.Int4。
func ToPgInt4(value *int32) pgtype.Int4 {
	if value == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *value, Valid: true}
}

// ToPgTimestamptz 将可空时间转换为 pgtype.Timestamptz（统一为 UTC）。
func ToPgTimestamptz(value *time.Time) pgtype.Timestamptz {
	if value == nil || value.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: value.UTC(), Valid: true}
}

// TextPtr 将 pgtype.Text 转回可空字符串。
func TextPtr(value pgtype.Text) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

// Float8Ptr 将 pgtype.Float8 转回可空浮点。
func Float8Ptr(value pgtype.Float8) *float64 {
	if !value.Valid {
		return nil
	}
	v := value.Float64
	return &v
}

// Int8Ptr 将 pgtype.Int8 转回可空整数。
func Int8Ptr(value pgtype.Int8) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}

// TimestamptzPtr 将 pgtype.Timestamptz 转回可空时间。
func TimestamptzPtr(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	v := value.Time.UTC()
	return &v
}

func mustTimestamptz(value pgtype.Timestamptz) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	return value.Time.UTC()
}
