package services_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/po"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThumbnailService(t *testing.T, store *fakeStore, extractor *fakeExtractor, repo *memoryVideoRepo, cfg services.ThumbnailConfig) *services.ThumbnailService {
	t.Helper()
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = t.TempDir()
	}
	svc, err := services.NewThumbnailService(newIssuer(t, store), extractor, repo, cfg, discardLogger(), nil)
	require.NoError(t, err)
	return svc
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "thumbnails/u1/thumb-1700-abc-u1.jpg", services.ThumbnailKey("uploads/1700-abc-u1.mp4", "u1"))
	assert.Equal(t, "thumbnails/u1/thumb-raw.jpg", services.ThumbnailKey("uploads/raw", "u1"))
}

func TestThumbnailGenerate(t *testing.T) {
	store := newFakeStore()
	extractor := &fakeExtractor{data: []byte("jpeg-bytes")}
	scratch := t.TempDir()
	svc := newThumbnailService(t, store, extractor, newMemoryVideoRepo(), services.ThumbnailConfig{ScratchDir: scratch})

	key, ok := svc.Generate(context.Background(), "uploads/1700-abc-u1.mp4", "u1")
	require.True(t, ok)
	assert.Equal(t, "thumbnails/u1/thumb-1700-abc-u1.jpg", key)

	data, found := store.object(key)
	require.True(t, found)
	assert.Equal(t, []byte("jpeg-bytes"), data)
	assert.Equal(t, "image/jpeg", store.contentTypes[key])

	require.Len(t, extractor.widths, 1)
	assert.Equal(t, services.DefaultThumbnailWidth, extractor.widths[0])
	assert.Contains(t, extractor.sources[0], "uploads/1700-abc-u1.mp4")
	gets := store.presignsFor("GET")
	require.Len(t, gets, 1)
	assert.Equal(t, services.DefaultThumbnailSourceTTL, gets[0].ttl)

	_, err := os.Stat(extractor.paths[0])
	assert.True(t, errors.Is(err, os.ErrNotExist), "scratch file should be removed")
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestThumbnailGenerateFailures(t *testing.T) {
	cases := map[string]func(*fakeStore, *fakeExtractor){
		"extractor error": func(_ *fakeStore, e *fakeExtractor) { e.err = errors.New("exit status 1") },
		"empty frame":     func(_ *fakeStore, e *fakeExtractor) { e.data = nil },
		"presign error":   func(s *fakeStore, _ *fakeExtractor) { s.presignErr = errStoreDown },
		"upload error":    func(s *fakeStore, _ *fakeExtractor) { s.putErr = errStoreDown },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			extractor := &fakeExtractor{data: []byte("jpeg")}
			mutate(store, extractor)
			svc := newThumbnailService(t, store, extractor, newMemoryVideoRepo(), services.ThumbnailConfig{})

			key, ok := svc.Generate(context.Background(), "uploads/a.mp4", "u1")
			assert.False(t, ok)
			assert.Empty(t, key)
		})
	}
}

func TestThumbnailGenerateTimeout(t *testing.T) {
	extractor := &fakeExtractor{data: []byte("jpeg"), delay: time.Second}
	svc := newThumbnailService(t, newFakeStore(), extractor, newMemoryVideoRepo(), services.ThumbnailConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, ok := svc.Generate(context.Background(), "uploads/a.mp4", "u1")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestThumbnailProcessPersistsKey(t *testing.T) {
	repo := newMemoryVideoRepo()
	video := &po.Video{VideoID: uuid.New(), UserID: "u1", InputKey: "uploads/a.mp4", Status: po.VideoStatusNotUploaded}
	repo.put(video)
	svc := newThumbnailService(t, newFakeStore(), &fakeExtractor{data: []byte("jpeg")}, repo, services.ThumbnailConfig{})

	key, err := svc.Process(context.Background(), vo.ThumbnailJob{VideoID: video.VideoID, InputKey: video.InputKey, OwnerID: "u1"})
	require.NoError(t, err)
	stored := repo.get(video.VideoID)
	require.NotNil(t, stored.ThumbnailKey)
	assert.Equal(t, key, *stored.ThumbnailKey)

	_, err = svc.Process(context.Background(), vo.ThumbnailJob{VideoID: uuid.New(), InputKey: "uploads/b.mp4", OwnerID: "u1"})
	require.Error(t, err)
}

func TestThumbnailProcessUnavailable(t *testing.T) {
	svc := newThumbnailService(t, newFakeStore(), &fakeExtractor{err: errors.New("boom")}, newMemoryVideoRepo(), services.ThumbnailConfig{})
	_, err := svc.Process(context.Background(), vo.ThumbnailJob{VideoID: uuid.New(), InputKey: "uploads/a.mp4", OwnerID: "u1"})
	assert.ErrorIs(t, err, services.ErrThumbnailUnavailable)
}

type recordingProcessor struct {
	mu      sync.Mutex
	jobs    []vo.ThumbnailJob
	release chan struct{}
	err     error
}

func (p *recordingProcessor) Process(ctx context.Context, job vo.ThumbnailJob) (string, error) {
	if p.release != nil {
		<-p.release
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return "thumbnails/" + job.OwnerID + "/x.jpg", p.err
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

func TestInlineThumbnailDispatcher(t *testing.T) {
	processor := &recordingProcessor{}
	d := services.NewInlineThumbnailDispatcher(processor)

	key, err := d.Dispatch(context.Background(), vo.ThumbnailJob{VideoID: uuid.New(), OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "thumbnails/u1/x.jpg", key)
	assert.Equal(t, 1, processor.count())
}

func TestAsyncThumbnailDispatcherSurvivesCallerCancel(t *testing.T) {
	processor := &recordingProcessor{}
	d := services.NewAsyncThumbnailDispatcher(processor, 2, 8, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 5; i++ {
		key, err := d.Dispatch(ctx, vo.ThumbnailJob{VideoID: uuid.New(), OwnerID: "u1"})
		require.NoError(t, err)
		assert.Empty(t, key)
	}
	cancel()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	require.NoError(t, d.Close(closeCtx))
	assert.Equal(t, 5, processor.count())

	_, err := d.Dispatch(context.Background(), vo.ThumbnailJob{VideoID: uuid.New()})
	assert.ErrorIs(t, err, services.ErrDispatcherClosed)
}

func TestAsyncThumbnailDispatcherBusy(t *testing.T) {
	processor := &recordingProcessor{release: make(chan struct{})}
	d := services.NewAsyncThumbnailDispatcher(processor, 1, 1, discardLogger())

	var busy error
	for i := 0; i < 4 && busy == nil; i++ {
		_, busy = d.Dispatch(context.Background(), vo.ThumbnailJob{VideoID: uuid.New()})
	}
	assert.ErrorIs(t, busy, services.ErrDispatcherBusy)

	close(processor.release)
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(closeCtx))
}
