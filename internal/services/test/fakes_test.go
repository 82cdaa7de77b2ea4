package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/po"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/repositories"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

type presignCall struct {
	method string
	key    string
	ttl    time.Duration
}

// fakeStore 为内存实现的 ObjectStore，记录所有调用。
type fakeStore struct {
	mu sync.Mutex

	bucket   string
	region   string
	uploadID string
	location string

	presignErr  error
	createErr   error
	partErr     error
	completeErr error
	abortErr    error
	putErr      error

	presigns       []presignCall
	completeCalls  int
	completedParts []vo.CompletedPart
	aborted        []string
	objects        map[string][]byte
	contentTypes   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bucket:       "videos-bucket",
		region:       "us-east-1",
		uploadID:     "upload-123",
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
	}
}

func (s *fakeStore) Bucket() string { return s.bucket }
func (s *fakeStore) Region() string { return s.region }

func (s *fakeStore) record(method, key string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presigns = append(s.presigns, presignCall{method: method, key: key, ttl: ttl})
}

func (s *fakeStore) PresignPut(_ context.Context, key, _ string, ttl time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	s.record("PUT", key, ttl)
	return "https://store.example/" + key + "?X-Amz-Signature=put", nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	s.record("GET", key, ttl)
	return "https://store.example/" + key + "?X-Amz-Signature=get", nil
}

func (s *fakeStore) CreateMultipart(_ context.Context, _ string, _ string) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.uploadID, nil
}

func (s *fakeStore) PresignPart(_ context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	if s.partErr != nil {
		return "", s.partErr
	}
	s.record("PART", key, ttl)
	return fmt.Sprintf("https://store.example/%s?uploadId=%s&partNumber=%d", key, uploadID, partNumber), nil
}

func (s *fakeStore) CompleteMultipart(_ context.Context, _ string, _ string, parts []vo.CompletedPart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeCalls++
	s.completedParts = append([]vo.CompletedPart(nil), parts...)
	if s.completeErr != nil {
		return "", s.completeErr
	}
	return s.location, nil
}

func (s *fakeStore) AbortMultipart(_ context.Context, key, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = append(s.aborted, key+"|"+uploadID)
	return s.abortErr
}

func (s *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.contentTypes[key] = contentType
	return nil
}

func (s *fakeStore) presignsFor(method string) []presignCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []presignCall
	for _, c := range s.presigns {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeStore) object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// memoryVideoRepo 为内存实现的视频仓储。
type memoryVideoRepo struct {
	mu        sync.Mutex
	videos    map[uuid.UUID]*po.Video
	createErr error
	updates   int
}

func newMemoryVideoRepo() *memoryVideoRepo {
	return &memoryVideoRepo{videos: map[uuid.UUID]*po.Video{}}
}

func (r *memoryVideoRepo) Create(_ context.Context, _ txmanager.Session, input repositories.CreateVideoInput) (*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, v := range r.videos {
		if v.InputKey == input.InputKey {
			return nil, repositories.ErrVideoExists
		}
	}
	now := time.Now().UTC()
	video := &po.Video{
		VideoID:          input.VideoID,
		UserID:           input.UserID,
		OriginalFileName: input.OriginalFileName,
		InputKey:         input.InputKey,
		Duration:         input.Duration,
		Size:             input.Size,
		Resolution:       input.Resolution,
		Format:           input.Format,
		ThumbnailKey:     input.ThumbnailKey,
		Status:           input.Status,
		MaxRetries:       input.MaxRetries,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.videos[video.VideoID] = video
	return clone(video), nil
}

// put 直接写入一条记录，绕过 input_key 唯一约束。
func (r *memoryVideoRepo) put(video *po.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[video.VideoID] = clone(video)
}

func (r *memoryVideoRepo) get(id uuid.UUID) *po.Video {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.videos[id]; ok {
		return clone(v)
	}
	return nil
}

func (r *memoryVideoRepo) GetByID(_ context.Context, _ txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	if v := r.get(videoID); v != nil {
		return v, nil
	}
	return nil, repositories.ErrVideoNotFound
}

func (r *memoryVideoRepo) GetByIDForUpdate(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	return r.GetByID(ctx, sess, videoID)
}

func (r *memoryVideoRepo) GetByInputKeyForUpdate(_ context.Context, _ txmanager.Session, inputKey string) (*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// 与数据库一致：按主键顺序取第一条匹配记录。
	var ids []uuid.UUID
	for id, v := range r.videos {
		if v.InputKey == inputKey {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, repositories.ErrVideoNotFound
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return clone(r.videos[ids[0]]), nil
}

func (r *memoryVideoRepo) UpdateState(_ context.Context, _ txmanager.Session, input repositories.UpdateVideoStateInput) (*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	video, ok := r.videos[input.VideoID]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	r.updates++
	video.Status = input.Status
	if input.ClearError {
		video.ErrorMessage = nil
	} else if input.ErrorMessage != nil {
		video.ErrorMessage = input.ErrorMessage
	}
	if input.TaskID != nil {
		video.TaskID = input.TaskID
	}
	if input.OutputKey != nil {
		video.OutputKey = input.OutputKey
	}
	if input.StartedAt != nil {
		video.StartedAt = input.StartedAt
	}
	if input.CompletedAt != nil {
		video.CompletedAt = input.CompletedAt
	}
	if input.CurrRetries != nil {
		video.CurrRetries = *input.CurrRetries
	}
	video.UpdatedAt = time.Now().UTC()
	return clone(video), nil
}

func (r *memoryVideoRepo) SetThumbnail(_ context.Context, _ txmanager.Session, videoID uuid.UUID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	video, ok := r.videos[videoID]
	if !ok {
		return repositories.ErrVideoNotFound
	}
	video.ThumbnailKey = &key
	return nil
}

func (r *memoryVideoRepo) ListByOwner(_ context.Context, _ txmanager.Session, userID string, status *po.VideoStatus) ([]*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*po.Video
	for _, v := range r.videos {
		if v.UserID != userID {
			continue
		}
		if status != nil && v.Status != *status {
			continue
		}
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID.String() < out[j].VideoID.String() })
	return out, nil
}

func clone(v *po.Video) *po.Video {
	c := *v
	return &c
}

type noopTxManager struct{}

type noopSession struct{}

func (noopSession) Tx() pgx.Tx               { return nil }
func (noopSession) Context() context.Context { return context.Background() }

func (noopTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

func (noopTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

// fakeExtractor 模拟 ffmpeg 截帧。
type fakeExtractor struct {
	mu      sync.Mutex
	data    []byte
	err     error
	delay   time.Duration
	calls   int
	paths   []string
	sources []string
	widths  []int
}

func (e *fakeExtractor) ExtractFrame(ctx context.Context, sourceURL, outputPath string, width int) error {
	e.mu.Lock()
	e.calls++
	e.paths = append(e.paths, outputPath)
	e.sources = append(e.sources, sourceURL)
	e.widths = append(e.widths, width)
	e.mu.Unlock()
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if e.err != nil {
		return e.err
	}
	return os.WriteFile(outputPath, e.data, 0o600)
}

func (e *fakeExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeTranscode 记录投递的转码任务。
type fakeTranscode struct {
	mu   sync.Mutex
	jobs []vo.TranscodeJob
	err  error
}

func (f *fakeTranscode) Dispatch(_ context.Context, job vo.TranscodeJob) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return fmt.Sprintf("msg-%d", len(f.jobs)), nil
}

func discardLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

func newIssuer(t *testing.T, store services.ObjectStore, opts ...services.IssuerOption) *services.Issuer {
	t.Helper()
	issuer, err := services.NewIssuer(store, services.IssuerConfig{}, discardLogger(), opts...)
	require.NoError(t, err)
	return issuer
}

func requireKind(t *testing.T, err error, kind services.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equalf(t, kind, services.KindOf(err), "unexpected error kind for %v", err)
}

func ptr[T any](v T) *T { return &v }

const keyUUID = "6f1c1c44-8f4a-4c56-9b6e-0e3d6a2f1a11"

// uploadKey 按 Issuer.GenerateKey 的格式拼出属于 owner 的 Key。
func uploadKey(owner, ext string) string {
	return "uploads/1700000000000-" + keyUUID + "-" + owner + "." + ext
}
