package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/po"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// statusFilterAll 表示不按状态过滤。
const statusFilterAll = "all"

// VideoRepo 抽象视频持久化操作，便于测试。
type VideoRepo interface {
	Create(ctx context.Context, sess txmanager.Session, input repositories.CreateVideoInput) (*po.Video, error)
	GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	GetByIDForUpdate(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	GetByInputKeyForUpdate(ctx context.Context, sess txmanager.Session, inputKey string) (*po.Video, error)
	UpdateState(ctx context.Context, sess txmanager.Session, input repositories.UpdateVideoStateInput) (*po.Video, error)
	ListByOwner(ctx context.Context, sess txmanager.Session, userID string, status *po.VideoStatus) ([]*po.Video, error)
}

// ThumbnailDispatcher 接收缩略图任务。同步实现返回生成的 Key，异步实现返回空字符串。
type ThumbnailDispatcher interface {
	Dispatch(ctx context.Context, job vo.ThumbnailJob) (string, error)
}

// TranscodeDispatcher 将转码任务投递给外部 worker，返回消息/任务 ID。
type TranscodeDispatcher interface {
	Dispatch(ctx context.Context, job vo.TranscodeJob) (string, error)
}

// CreateRecordInput 为创建视频记录的输入。
type CreateRecordInput struct {
	OwnerID          string
	OriginalFileName string
	InputKey         string
	Duration         *float64
	Size             *int64
	Resolution       *string
	Format           *string
	MaxRetries       *int32
}

// WorkerStatusInput 为 worker 回报的状态更新。
type WorkerStatusInput struct {
	InputKey     string
	Status       string
	TaskID       *string
	OutputKey    *string
	ErrorMessage *string
}

type transitionRequest struct {
	target       po.VideoStatus
	source       TransitionSource
	taskID       *string
	outputKey    *string
	errorMessage *string
}

func (r transitionRequest) hasPayload() bool {
	return r.taskID != nil || r.outputKey != nil || r.errorMessage != nil
}

type transitionResult struct {
	video     *po.Video
	previous  po.VideoStatus
	requeued  bool
	unchanged bool
}

// VideoService 管理视频记录的生命周期与状态机。
type VideoService struct {
	repo       VideoRepo
	tx         txmanager.Manager
	issuer     *Issuer
	machine    *StatusMachine
	thumbnails ThumbnailDispatcher
	transcode  TranscodeDispatcher
	metrics    Metrics
	maxRetries int32
	now        func() time.Time
	log        *log.Helper
}

// VideoServiceOption 定义 VideoService 的可选配置。
type VideoServiceOption func(*VideoService)

// WithVideoClock 覆盖时间来源，便于测试。
func WithVideoClock(clock func() time.Time) VideoServiceOption {
	return func(s *VideoService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithTranscodeDispatcher 启用转码投递与失败重试。
func WithTranscodeDispatcher(d TranscodeDispatcher) VideoServiceOption {
	return func(s *VideoService) {
		s.transcode = d
	}
}

// WithVideoMetrics 注入指标记录器。
func WithVideoMetrics(m Metrics) VideoServiceOption {
	return func(s *VideoService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithDefaultMaxRetries 覆盖新建记录的默认最大重试次数。
func WithDefaultMaxRetries(n int32) VideoServiceOption {
	return func(s *VideoService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewVideoService 构造 VideoService。thumbnails 为 nil 时不生成缩略图。
func NewVideoService(repo VideoRepo, tx txmanager.Manager, issuer *Issuer, thumbnails ThumbnailDispatcher, logger log.Logger, opts ...VideoServiceOption) (*VideoService, error) {
	switch {
	case repo == nil:
		return nil, errors.New("video service: repository is required")
	case tx == nil:
		return nil, errors.New("video service: tx manager is required")
	case issuer == nil:
		return nil, errors.New("video service: issuer is required")
	}
	svc := &VideoService{
		repo:       repo,
		tx:         tx,
		issuer:     issuer,
		machine:    NewStatusMachine(),
		thumbnails: thumbnails,
		metrics:    NopMetrics{},
		maxRetries: po.DefaultMaxRetries,
		now:        time.Now,
		log:        log.NewHelper(logger),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateRecord 以 NOT_UPLOADED 状态持久化视频记录，随后派发缩略图任务。
// 缩略图失败只记录日志，不影响记录创建。
func (s *VideoService) CreateRecord(ctx context.Context, input CreateRecordInput) (*vo.Video, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, AuthenticationError("user id is required")
	}
	if strings.TrimSpace(input.OriginalFileName) == "" {
		return nil, ValidationError(ReasonVideoInvalid, "originalFileName is required")
	}
	if strings.TrimSpace(input.InputKey) == "" {
		return nil, ValidationError(ReasonVideoInvalid, "s3InputKey is required")
	}
	if !strings.HasPrefix(input.InputKey, uploadKeyPrefix) || !OwnsKey(input.InputKey, input.OwnerID) {
		return nil, ForbiddenError(ReasonKeyNotOwned, "s3InputKey does not belong to caller")
	}
	if input.Duration != nil && *input.Duration < 0 {
		return nil, ValidationError(ReasonVideoInvalid, "duration must not be negative")
	}
	if input.Size != nil && *input.Size < 0 {
		return nil, ValidationError(ReasonVideoInvalid, "size must not be negative")
	}
	maxRetries := s.maxRetries
	if input.MaxRetries != nil {
		if *input.MaxRetries < 0 {
			return nil, ValidationError(ReasonVideoInvalid, "maxRetries must not be negative")
		}
		maxRetries = *input.MaxRetries
	}

	video, err := s.repo.Create(ctx, nil, repositories.CreateVideoInput{
		VideoID:          uuid.New(),
		UserID:           input.OwnerID,
		OriginalFileName: input.OriginalFileName,
		InputKey:         input.InputKey,
		Duration:         input.Duration,
		Size:             input.Size,
		Resolution:       input.Resolution,
		Format:           input.Format,
		Status:           po.VideoStatusNotUploaded,
		MaxRetries:       maxRetries,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrVideoExists) {
			return nil, ConflictError(ReasonVideoExists, "video record for this key already exists", err)
		}
		return nil, DatabaseError(ReasonVideoPersistFailed, "failed to create video record", err)
	}
	s.log.WithContext(ctx).Infof("video record created: video_id=%s user_id=%s input_key=%s", video.VideoID, video.UserID, video.InputKey)

	if key := s.dispatchThumbnail(ctx, video); key != "" {
		video.ThumbnailKey = &key
	}
	return vo.NewVideo(video), nil
}

func (s *VideoService) dispatchThumbnail(ctx context.Context, video *po.Video) string {
	if s.thumbnails == nil {
		return ""
	}
	key, err := s.thumbnails.Dispatch(ctx, vo.ThumbnailJob{
		VideoID:    video.VideoID,
		InputKey:   video.InputKey,
		OwnerID:    video.UserID,
		EnqueuedAt: s.now().UTC(),
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("dispatch thumbnail failed: video_id=%s err=%v", video.VideoID, err)
		return ""
	}
	return key
}

// UpdateStatus 由视频所有者发起的状态迁移，严格按迁移图校验。
func (s *VideoService) UpdateStatus(ctx context.Context, ownerID string, videoID uuid.UUID, status string) (*vo.Video, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, AuthenticationError("user id is required")
	}
	if videoID == uuid.Nil {
		return nil, ValidationError(ReasonVideoInvalid, "videoId is required")
	}
	target, err := po.ParseVideoStatus(status)
	if err != nil {
		return nil, ValidationError(ReasonStatusInvalid, "invalid status %q", status)
	}

	lookup := func(ctx context.Context, sess txmanager.Session) (*po.Video, error) {
		video, err := s.repo.GetByIDForUpdate(ctx, sess, videoID)
		if err != nil {
			return nil, err
		}
		if video.UserID != ownerID {
			return nil, repositories.ErrVideoNotFound
		}
		return video, nil
	}
	return s.transition(ctx, lookup, transitionRequest{target: target, source: SourceOwner})
}

// UpdateStatusForWorker 由转码 worker 发起的状态迁移，通过 input key 定位记录。
func (s *VideoService) UpdateStatusForWorker(ctx context.Context, input WorkerStatusInput) (*vo.Video, error) {
	if strings.TrimSpace(input.InputKey) == "" {
		return nil, ValidationError(ReasonVideoInvalid, "videoId (input key) is required")
	}
	target, err := po.ParseVideoStatus(input.Status)
	if err != nil {
		return nil, ValidationError(ReasonStatusInvalid, "invalid status %q", input.Status)
	}
	lookup := func(ctx context.Context, sess txmanager.Session) (*po.Video, error) {
		return s.repo.GetByInputKeyForUpdate(ctx, sess, input.InputKey)
	}
	return s.transition(ctx, lookup, transitionRequest{
		target:       target,
		source:       SourceWorker,
		taskID:       input.TaskID,
		outputKey:    input.OutputKey,
		errorMessage: input.ErrorMessage,
	})
}

// FetchByStatus 列出所有者的视频，status 为 "all" 时不过滤。
func (s *VideoService) FetchByStatus(ctx context.Context, ownerID, status string) ([]*vo.Video, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, AuthenticationError("user id is required")
	}
	var filter *po.VideoStatus
	if trimmed := strings.TrimSpace(status); trimmed != "" && !strings.EqualFold(trimmed, statusFilterAll) {
		parsed, err := po.ParseVideoStatus(trimmed)
		if err != nil {
			return nil, ValidationError(ReasonStatusInvalid, "invalid status %q", status)
		}
		filter = &parsed
	}
	videos, err := s.repo.ListByOwner(ctx, nil, ownerID, filter)
	if err != nil {
		return nil, DatabaseError(ReasonInternal, "failed to fetch videos", err)
	}
	return vo.NewVideos(videos), nil
}

// GetVideo 返回所有者的视频详情，附带播放与缩略图的临时 URL。
func (s *VideoService) GetVideo(ctx context.Context, ownerID string, videoID uuid.UUID) (*vo.VideoDetail, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, AuthenticationError("user id is required")
	}
	video, err := s.repo.GetByID(ctx, nil, videoID)
	if err != nil {
		return nil, s.mapRepoError(err, "failed to load video")
	}
	if video.UserID != ownerID {
		return nil, NotFoundError(ReasonVideoNotFound, "video not found", nil)
	}

	detail := &vo.VideoDetail{Video: *vo.NewVideo(video)}
	playbackKey := video.InputKey
	if video.OutputKey != nil && *video.OutputKey != "" {
		playbackKey = *video.OutputKey
	}
	if url, err := s.issuer.IssueDownloadURL(ctx, playbackKey, 0); err == nil {
		detail.PlaybackURL = url
	} else {
		s.log.WithContext(ctx).Warnf("presign playback url failed: video_id=%s err=%v", video.VideoID, err)
	}
	if video.ThumbnailKey != nil && *video.ThumbnailKey != "" {
		if url, err := s.issuer.IssueDownloadURL(ctx, *video.ThumbnailKey, 0); err == nil {
			detail.ThumbnailURL = url
		} else {
			s.log.WithContext(ctx).Warnf("presign thumbnail url failed: video_id=%s err=%v", video.VideoID, err)
		}
	}
	return detail, nil
}

type videoLookup func(ctx context.Context, sess txmanager.Session) (*po.Video, error)

// transition 在事务内加锁读取、校验并写回状态，提交后按需投递转码任务。
func (s *VideoService) transition(ctx context.Context, lookup videoLookup, req transitionRequest) (*vo.Video, error) {
	var result transitionResult
	err := s.tx.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		video, err := lookup(txCtx, sess)
		if err != nil {
			return err
		}
		result, err = s.applyTransition(txCtx, sess, video, req)
		return err
	})
	if err != nil {
		return nil, s.mapRepoError(err, "failed to update video status")
	}

	video := result.video
	if !result.unchanged {
		s.metrics.StatusTransition(result.previous, video.Status, req.source.String())
		s.log.WithContext(ctx).Infof("video status changed: video_id=%s from=%s to=%s source=%s", video.VideoID, result.previous, video.Status, req.source)
	}

	if s.transcode != nil {
		switch {
		case result.requeued:
			video = s.requeue(ctx, video)
		case video.Status == po.VideoStatusUploaded && result.previous != po.VideoStatusUploaded:
			if dispatched, err := s.dispatchTranscode(ctx, video); err == nil {
				video = dispatched
			}
		}
	}
	return vo.NewVideo(video), nil
}

func (s *VideoService) applyTransition(ctx context.Context, sess txmanager.Session, video *po.Video, req transitionRequest) (transitionResult, error) {
	result := transitionResult{video: video, previous: video.Status}
	if video.Status == req.target && !req.hasPayload() {
		result.unchanged = true
		return result, nil
	}
	if err := s.machine.Check(video.Status, req.target, req.source); err != nil {
		return result, err
	}

	now := s.now().UTC()
	input := repositories.UpdateVideoStateInput{
		VideoID:      video.VideoID,
		Status:       req.target,
		TaskID:       req.taskID,
		OutputKey:    req.outputKey,
		ErrorMessage: req.errorMessage,
	}

	if req.source == SourceWorker && req.target == po.VideoStatusFailed && video.Status != po.VideoStatusFailed {
		retries := video.CurrRetries + 1
		input.CurrRetries = &retries
		if s.transcode != nil && retries < video.MaxRetries && s.machine.Allowed(video.Status, po.VideoStatusInQueue, SourceRetry) {
			input.Status = po.VideoStatusInQueue
			result.requeued = true
		}
	}

	if input.Status == po.VideoStatusProcessing && video.StartedAt == nil {
		input.StartedAt = &now
	}
	if input.Status.IsTerminal() && video.CompletedAt == nil {
		input.CompletedAt = &now
	}
	if input.Status == po.VideoStatusCompleted && req.errorMessage == nil {
		input.ClearError = true
	}

	updated, err := s.repo.UpdateState(ctx, sess, input)
	if err != nil {
		return result, err
	}
	result.video = updated
	result.unchanged = updated.Status == video.Status
	return result, nil
}

// dispatchTranscode 投递转码任务并将视频推进到 IN_QUEUE。
func (s *VideoService) dispatchTranscode(ctx context.Context, video *po.Video) (*po.Video, error) {
	taskID, err := s.transcode.Dispatch(ctx, vo.TranscodeJob{
		VideoID:  video.VideoID,
		InputKey: video.InputKey,
		Bucket:   s.issuer.Bucket(),
		OwnerID:  video.UserID,
		Attempt:  video.CurrRetries + 1,
	})
	if err != nil {
		s.metrics.TranscodeDispatched("error")
		s.log.WithContext(ctx).Errorf("dispatch transcode failed: video_id=%s err=%v", video.VideoID, err)
		return nil, ExternalServiceError(ReasonDispatchUnavailable, "failed to dispatch transcode job", err)
	}
	s.metrics.TranscodeDispatched("ok")

	videoID := video.VideoID
	lookup := func(ctx context.Context, sess txmanager.Session) (*po.Video, error) {
		return s.repo.GetByIDForUpdate(ctx, sess, videoID)
	}
	var result transitionResult
	err = s.tx.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		current, err := lookup(txCtx, sess)
		if err != nil {
			return err
		}
		result, err = s.applyTransition(txCtx, sess, current, transitionRequest{
			target: po.VideoStatusInQueue,
			source: SourceWorker,
			taskID: &taskID,
		})
		return err
	})
	if err != nil {
		// worker 可能已先行推进状态，此时保留其结果。
		s.log.WithContext(ctx).Warnf("mark video queued failed: video_id=%s task_id=%s err=%v", video.VideoID, taskID, err)
		return video, nil
	}
	if !result.unchanged {
		s.metrics.StatusTransition(result.previous, result.video.Status, SourceWorker.String())
	}
	return result.video, nil
}

// requeue 为失败的视频重新投递转码任务，投递失败时标记为 FAILED。
func (s *VideoService) requeue(ctx context.Context, video *po.Video) *po.Video {
	dispatched, err := s.dispatchTranscode(ctx, video)
	if err == nil {
		return dispatched
	}
	msg := "requeue failed: " + err.Error()
	now := s.now().UTC()
	var failed *po.Video
	txErr := s.tx.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var updateErr error
		failed, updateErr = s.repo.UpdateState(txCtx, sess, repositories.UpdateVideoStateInput{
			VideoID:      video.VideoID,
			Status:       po.VideoStatusFailed,
			ErrorMessage: &msg,
			CompletedAt:  &now,
		})
		return updateErr
	})
	if txErr != nil {
		s.log.WithContext(ctx).Errorf("mark video failed after requeue error: video_id=%s err=%v", video.VideoID, txErr)
		return video
	}
	s.metrics.StatusTransition(video.Status, po.VideoStatusFailed, SourceRetry.String())
	return failed
}

func (s *VideoService) mapRepoError(err error, message string) error {
	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return err
	case errors.Is(err, repositories.ErrVideoNotFound):
		return NotFoundError(ReasonVideoNotFound, "video not found", err)
	default:
		return DatabaseError(ReasonInternal, message, err)
	}
}
