// Package repositories 实现数据访问层，基于 pgx 直接执行 SQL。
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/po"
	"github.com/bionicotaku/lingo-services-upload/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrVideoNotFound 表示视频记录不存在。
	ErrVideoNotFound = errors.New("video not found")
	// ErrVideoExists 表示 input_key 已被其他记录占用。
	ErrVideoExists = errors.New("video input key already exists")
)

// VideoRepository 封装 videos 表的访问逻辑。
type VideoRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewVideoRepository 构造 VideoRepository。
func NewVideoRepository(db *pgxpool.Pool, logger log.Logger) *VideoRepository {
	return &VideoRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// CreateVideoInput 描述新建视频记录所需字段。
type CreateVideoInput struct {
	VideoID          uuid.UUID
	UserID           string
	OriginalFileName string
	InputKey         string
	Duration         *float64
	Size             *int64
	Resolution       *string
	Format           *string
	ThumbnailKey     *string
	Status           po.VideoStatus
	MaxRetries       int32
}

// UpdateVideoStateInput 描述状态迁移时需要写回的字段，nil 表示保持原值。
type UpdateVideoStateInput struct {
	VideoID      uuid.UUID
	Status       po.VideoStatus
	ErrorMessage *string
	ClearError   bool
	TaskID       *string
	OutputKey    *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CurrRetries  *int32
}

const insertVideoSQL = `
insert into videos (
	video_id, user_id, original_file_name, input_key, duration, size, resolution, format,
	thumbnail_key, status, max_retries
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
returning ` + mappers.VideoColumns

// Create 插入新的视频记录。
func (r *VideoRepository) Create(ctx context.Context, sess txmanager.Session, input CreateVideoInput) (*po.Video, error) {
	q := querier(r.db, sess)
	if input.VideoID == uuid.Nil {
		input.VideoID = uuid.New()
	}

	var row mappers.VideoRow
	err := q.QueryRow(ctx, insertVideoSQL,
		input.VideoID,
		input.UserID,
		input.OriginalFileName,
		input.InputKey,
		mappers.ToPgFloat8(input.Duration),
		mappers.ToPgInt8(input.Size),
		mappers.ToPgText(input.Resolution),
		mappers.ToPgText(input.Format),
		mappers.ToPgText(input.ThumbnailKey),
		string(input.Status),
		input.MaxRetries,
	).Scan(row.ScanTargets()...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrVideoExists
		}
		r.log.WithContext(ctx).Errorf("insert video failed: user_id=%s input_key=%s err=%v", input.UserID, input.InputKey, err)
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return mappers.VideoFromRow(row), nil
}

// GetByID 按主键查询。
func (r *VideoRepository) GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	return r.getOne(ctx, sess, "get video by id", `select `+mappers.VideoColumns+` from videos where video_id = $1`, videoID)
}

// GetByIDForUpdate 按主键查询并加行锁，需在事务内调用。
func (r *VideoRepository) GetByIDForUpdate(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	return r.getOne(ctx, sess, "lock video by id", `select `+mappers.VideoColumns+` from videos where video_id = $1 for update`, videoID)
}

// GetByInputKeyForUpdate 按 input_key 查询并加行锁，供 worker 回调使用。
func (r *VideoRepository) GetByInputKeyForUpdate(ctx context.Context, sess txmanager.Session, inputKey string) (*po.Video, error) {
	return r.getOne(ctx, sess, "lock video by input key", `select `+mappers.VideoColumns+` from videos where input_key = $1 for update`, inputKey)
}

func (r *VideoRepository) getOne(ctx context.Context, sess txmanager.Session, op, sql string, arg any) (*po.Video, error) {
	q := querier(r.db, sess)
	var row mappers.VideoRow
	if err := q.QueryRow(ctx, sql, arg).Scan(row.ScanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("%s failed: key=%v err=%v", op, arg, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return mappers.VideoFromRow(row), nil
}

const updateVideoStateSQL = `
update videos set
	status        = $2,
	error_message = case when $3::boolean then null else coalesce($4, error_message) end,
	task_id       = coalesce($5, task_id),
	output_key    = coalesce($6, output_key),
	started_at    = coalesce($7, started_at),
	completed_at  = coalesce($8, completed_at),
	curr_retries  = coalesce($9, curr_retries),
	updated_at    = now()
where video_id = $1
returning ` + mappers.VideoColumns

// UpdateState 写回状态迁移结果。
func (r *VideoRepository) UpdateState(ctx context.Context, sess txmanager.Session, input UpdateVideoStateInput) (*po.Video, error) {
	q := querier(r.db, sess)
	var row mappers.VideoRow
	err := q.QueryRow(ctx, updateVideoStateSQL,
		input.VideoID,
		string(input.Status),
		input.ClearError,
		mappers.ToPgText(input.ErrorMessage),
		mappers.ToPgText(input.TaskID),
		mappers.ToPgText(input.OutputKey),
		mappers.ToPgTimestamptz(input.StartedAt),
		mappers.ToPgTimestamptz(input.CompletedAt),
		mappers.ToPgInt4(input.CurrRetries),
	).Scan(row.ScanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("update video state failed: video_id=%s status=%s err=%v", input.VideoID, input.Status, err)
		return nil, fmt.Errorf("update video state: %w", err)
	}
	return mappers.VideoFromRow(row), nil
}

// SetThumbnail 回写缩略图 Key。
func (r *VideoRepository) SetThumbnail(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, thumbnailKey string) error {
	q := querier(r.db, sess)
	tag, err := q.Exec(ctx, `update videos set thumbnail_key = $2, updated_at = now() where video_id = $1`, videoID, thumbnailKey)
	if err != nil {
		r.log.WithContext(ctx).Errorf("set thumbnail failed: video_id=%s err=%v", videoID, err)
		return fmt.Errorf("set thumbnail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// ListByOwner 列出用户的视频，status 为 nil 时不过滤状态。
func (r *VideoRepository) ListByOwner(ctx context.Context, sess txmanager.Session, userID string, status *po.VideoStatus) ([]*po.Video, error) {
	q := querier(r.db, sess)
	sql := `select ` + mappers.VideoColumns + ` from videos where user_id = $1`
	args := []any{userID}
	if status != nil {
		sql += ` and status = $2`
		args = append(args, string(*status))
	}
	sql += ` order by created_at desc, video_id`

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		r.log.WithContext(ctx).Errorf("list videos failed: user_id=%s err=%v", userID, err)
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*po.Video
	for rows.Next() {
		var row mappers.VideoRow
		if err := rows.Scan(row.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, mappers.VideoFromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}
