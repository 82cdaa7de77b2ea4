package status_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/services"
	"github.com/bionicotaku/lingo-services-upload/internal/tasks/status"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingUpdater struct {
	mu     sync.Mutex
	inputs []services.WorkerStatusInput
	err    error
}

func (u *recordingUpdater) UpdateStatusForWorker(_ context.Context, input services.WorkerStatusInput) (*vo.Video, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.inputs = append(u.inputs, input)
	if u.err != nil {
		return nil, u.err
	}
	return &vo.Video{VideoID: uuid.New(), InputKey: input.InputKey, Status: input.Status}, nil
}

func (u *recordingUpdater) received() []services.WorkerStatusInput {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]services.WorkerStatusInput(nil), u.inputs...)
}

type controllableSubscriber struct {
	ch        chan *gcpubsub.Message
	once      sync.Once
	mu        sync.Mutex
	delivered int
	nacked    int
}

func newControllableSubscriber(buffer int) *controllableSubscriber {
	return &controllableSubscriber{ch: make(chan *gcpubsub.Message, buffer)}
}

func (s *controllableSubscriber) Publish(msg *gcpubsub.Message) { s.ch <- msg }

func (s *controllableSubscriber) Close() { s.once.Do(func() { close(s.ch) }) }

func (s *controllableSubscriber) Stop() { s.Close() }

func (s *controllableSubscriber) Receive(ctx context.Context, handler func(context.Context, *gcpubsub.Message) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.ch:
			if !ok {
				return nil
			}
			err := handler(ctx, msg)
			s.mu.Lock()
			s.delivered++
			if err != nil {
				s.nacked++
			}
			s.mu.Unlock()
		}
	}
}

func (s *controllableSubscriber) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered, s.nacked
}

func TestNewRunnerRequiresDependencies(t *testing.T) {
	logger := log.NewStdLogger(io.Discard)
	_, err := status.NewRunner(status.RunnerParams{Updater: &recordingUpdater{}, Logger: logger})
	require.Error(t, err)
	_, err = status.NewRunner(status.RunnerParams{Subscriber: newControllableSubscriber(1), Logger: logger})
	require.Error(t, err)
	require.Nil(t, status.ProvideRunner(nil, nil, logger))
}

func TestRunnerAppliesReportsAndSkipsInvalidPayloads(t *testing.T) {
	updater := &recordingUpdater{}
	sub := newControllableSubscriber(8)
	runner, err := status.NewRunner(status.RunnerParams{
		Subscriber: sub,
		Updater:    updater,
		Logger:     log.NewStdLogger(io.Discard),
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()

	sub.Publish(&gcpubsub.Message{Data: []byte("not-json")})
	sub.Publish(&gcpubsub.Message{Data: []byte(`{"status":"COMPLETED"}`)})
	sub.Publish(&gcpubsub.Message{Data: []byte(`{"videoId":" uploads/a.mp4 ","status":"COMPLETED","taskId":"t-1","outputKey":"out/a.m3u8"}`)})
	sub.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}

	inputs := updater.received()
	require.Len(t, inputs, 1)
	require.Equal(t, "uploads/a.mp4", inputs[0].InputKey)
	require.Equal(t, "COMPLETED", inputs[0].Status)
	require.Equal(t, "t-1", *inputs[0].TaskID)
	require.Equal(t, "out/a.m3u8", *inputs[0].OutputKey)

	delivered, nacked := sub.counts()
	require.Equal(t, 3, delivered)
	require.Zero(t, nacked)
}

func TestRunnerAcksPermanentFailuresAndNacksTransientOnes(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantNacks int
	}{
		{"conflict", services.ConflictError(services.ReasonIllegalTransition, "illegal", nil), 0},
		{"not found", services.NotFoundError(services.ReasonVideoNotFound, "missing", nil), 0},
		{"validation", services.ValidationError(services.ReasonStatusInvalid, "bad status"), 0},
		{"database", services.DatabaseError(services.ReasonVideoPersistFailed, "db down", errors.New("conn refused")), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := newControllableSubscriber(1)
			runner, err := status.NewRunner(status.RunnerParams{
				Subscriber: sub,
				Updater:    &recordingUpdater{err: tc.err},
				Logger:     log.NewStdLogger(io.Discard),
			})
			require.NoError(t, err)

			sub.Publish(&gcpubsub.Message{Data: []byte(`{"videoId":"uploads/a.mp4","status":"FAILED"}`)})
			sub.Close()
			require.NoError(t, runner.Run(context.Background()))

			_, nacked := sub.counts()
			require.Equal(t, tc.wantNacks, nacked)
		})
	}
}
