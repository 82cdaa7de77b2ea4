package controllers_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/po"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type stubStore struct {
	mu            sync.Mutex
	completeCalls int
}

func (*stubStore) Bucket() string { return "videos-bucket" }
func (*stubStore) Region() string { return "us-east-1" }

func (*stubStore) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://store.example/put/" + key, nil
}

func (*stubStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.example/get/" + key, nil
}

func (*stubStore) CreateMultipart(context.Context, string, string) (string, error) {
	return "upload-1", nil
}

func (*stubStore) PresignPart(_ context.Context, key, _ string, n int32, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://store.example/part/%s/%d", key, n), nil
}

func (s *stubStore) CompleteMultipart(_ context.Context, key, _ string, _ []vo.CompletedPart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeCalls++
	return "https://store.example/" + key, nil
}

func (*stubStore) AbortMultipart(context.Context, string, string) error { return nil }

func (*stubStore) Put(context.Context, string, io.Reader, int64, string) error { return nil }

type memoryRepo struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*po.Video
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{videos: map[uuid.UUID]*po.Video{}}
}

func (r *memoryRepo) Create(_ context.Context, _ txmanager.Session, in repositories.CreateVideoInput) (*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.InputKey == in.InputKey {
			return nil, repositories.ErrVideoExists
		}
	}
	now := time.Now().UTC()
	v := &po.Video{
		VideoID:          in.VideoID,
		UserID:           in.UserID,
		OriginalFileName: in.OriginalFileName,
		InputKey:         in.InputKey,
		Duration:         in.Duration,
		Size:             in.Size,
		Status:           in.Status,
		MaxRetries:       in.MaxRetries,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.videos[v.VideoID] = v
	cp := *v
	return &cp, nil
}

func (r *memoryRepo) GetByID(_ context.Context, _ txmanager.Session, id uuid.UUID) (*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *memoryRepo) GetByIDForUpdate(ctx context.Context, sess txmanager.Session, id uuid.UUID) (*po.Video, error) {
	return r.GetByID(ctx, sess, id)
}

func (r *memoryRepo) GetByInputKeyForUpdate(_ context.Context, _ txmanager.Session, key string) (*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.InputKey == key {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repositories.ErrVideoNotFound
}

func (r *memoryRepo) UpdateState(_ context.Context, _ txmanager.Session, in repositories.UpdateVideoStateInput) (*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[in.VideoID]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	v.Status = in.Status
	if in.ClearError {
		v.ErrorMessage = nil
	} else if in.ErrorMessage != nil {
		v.ErrorMessage = in.ErrorMessage
	}
	if in.TaskID != nil {
		v.TaskID = in.TaskID
	}
	if in.OutputKey != nil {
		v.OutputKey = in.OutputKey
	}
	if in.CurrRetries != nil {
		v.CurrRetries = *in.CurrRetries
	}
	v.UpdatedAt = time.Now().UTC()
	cp := *v
	return &cp, nil
}

func (r *memoryRepo) ListByOwner(_ context.Context, _ txmanager.Session, userID string, status *po.VideoStatus) ([]*po.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*po.Video
	for _, v := range r.videos {
		if v.UserID != userID || (status != nil && v.Status != *status) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID.String() < out[j].VideoID.String() })
	return out, nil
}

type noopTx struct{}

type noopSession struct{}

func (noopSession) Tx() pgx.Tx               { return nil }
func (noopSession) Context() context.Context { return context.Background() }

func (noopTx) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

func (noopTx) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

// ownedKey 按 Issuer.GenerateKey 的格式拼出属于 owner 的上传 Key。
func ownedKey(owner string) string {
	return "uploads/1700000000000-6f1c1c44-8f4a-4c56-9b6e-0e3d6a2f1a11-" + owner + ".mp4"
}
