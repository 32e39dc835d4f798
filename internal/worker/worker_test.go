package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/framepipe/video-processing-service/internal/domain/entity"
	"github.com/framepipe/video-processing-service/internal/domain/port"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptQueue struct {
	mu          sync.Mutex
	messages    []*port.Message
	acked       []string
	deadLetters [][]byte
	receiveErr  error
}

func (q *scriptQueue) Enqueue(context.Context, []byte) error { return nil }

func (q *scriptQueue) Receive(context.Context, time.Duration, time.Duration) (*port.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.receiveErr != nil {
		return nil, q.receiveErr
	}
	if len(q.messages) == 0 {
		return nil, nil
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	return msg, nil
}

func (q *scriptQueue) Ack(_ context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, handle)
	return nil
}

func (q *scriptQueue) DeadLetter(_ context.Context, body []byte, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadLetters = append(q.deadLetters, body)
	return nil
}

func (q *scriptQueue) ackedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked)
}

type stubStorage struct {
	exists    bool
	existsErr error
}

func (s *stubStorage) Exists(context.Context, string) (bool, error) { return s.exists, s.existsErr }
func (s *stubStorage) Get(context.Context, string) ([]byte, error)  { return nil, errors.New("not used") }
func (s *stubStorage) Save(context.Context, string, []byte) error   { return nil }
func (s *stubStorage) PresignedUploadURL(context.Context, string, string, string) (string, error) {
	return "", errors.New("not used")
}
func (s *stubStorage) PublicURL(string) string { return "" }

type stubEnqueuer struct {
	video *entity.Video
	err   error
	calls int
}

func (e *stubEnqueuer) Execute(_ context.Context, _ uuid.UUID) (*entity.Video, error) {
	e.calls++
	return e.video, e.err
}

type stubProcessor struct {
	err   error
	calls []uuid.UUID
}

func (p *stubProcessor) Execute(_ context.Context, videoID uuid.UUID) error {
	p.calls = append(p.calls, videoID)
	return p.err
}

func storageEventBody(t *testing.T, videoID uuid.UUID) []byte {
	t.Helper()
	event := entity.StorageEventNotification{
		Records: []entity.StorageEventRecord{{
			S3: entity.StorageEventEntity{
				Object: entity.StorageEventObject{Key: "uploads/user-1/" + videoID.String() + ".mp4"},
			},
		}},
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func queuedVideo(t *testing.T, id uuid.UUID) *entity.Video {
	t.Helper()
	video, err := entity.NewVideo(id, "user-1", "uploads/user-1/"+id.String()+".mp4")
	require.NoError(t, err)
	video.MarkQueued()
	return video
}

func newTestWorker(queue *scriptQueue, storage port.BlobStorage, enq Enqueuer, proc Processor) *Worker {
	return New(queue, storage, enq, proc, zap.NewNop(), Config{
		ReceiveWait:       time.Millisecond,
		VisibilityTimeout: time.Second,
		IdleDelay:         time.Millisecond,
		ErrorDelay:        time.Millisecond,
	})
}

func TestHandleStorageEventProcessesAndAcks(t *testing.T) {
	videoID := uuid.New()
	queue := &scriptQueue{}
	enq := &stubEnqueuer{video: queuedVideo(t, videoID)}
	proc := &stubProcessor{}
	w := newTestWorker(queue, &stubStorage{exists: true}, enq, proc)

	msg := &port.Message{Handle: "m1", Body: storageEventBody(t, videoID)}
	require.NoError(t, w.handle(context.Background(), msg))

	assert.Equal(t, []uuid.UUID{videoID}, proc.calls)
	assert.Equal(t, []string{"m1"}, queue.acked)
}

func TestHandleDirectProcessingMessage(t *testing.T) {
	videoID := uuid.New()
	queue := &scriptQueue{}
	proc := &stubProcessor{}
	w := newTestWorker(queue, &stubStorage{exists: true}, &stubEnqueuer{}, proc)

	body, err := json.Marshal(entity.ProcessingMessage{VideoID: videoID, UserID: "user-1"})
	require.NoError(t, err)

	msg := &port.Message{Handle: "m1", Body: body}
	require.NoError(t, w.handle(context.Background(), msg))

	assert.Equal(t, []uuid.UUID{videoID}, proc.calls)
	assert.Equal(t, []string{"m1"}, queue.acked)
}

func TestCompletedVideoEventAckedWithoutProcessing(t *testing.T) {
	videoID := uuid.New()
	video := queuedVideo(t, videoID)
	video.MarkCompleted([]string{"frame_0001.jpg"}, "http://x/frames.zip")

	queue := &scriptQueue{}
	proc := &stubProcessor{}
	w := newTestWorker(queue, &stubStorage{exists: true}, &stubEnqueuer{video: video}, proc)

	msg := &port.Message{Handle: "dup", Body: storageEventBody(t, videoID)}
	require.NoError(t, w.handle(context.Background(), msg))

	assert.Empty(t, proc.calls, "duplicate notification must not re-run the pipeline")
	assert.Equal(t, []string{"dup"}, queue.acked)
}

func TestUnknownVideoEventDropped(t *testing.T) {
	videoID := uuid.New()
	queue := &scriptQueue{}
	proc := &stubProcessor{}
	enq := &stubEnqueuer{err: entity.ErrVideoNotFound}
	w := newTestWorker(queue, &stubStorage{exists: true}, enq, proc)

	msg := &port.Message{Handle: "m1", Body: storageEventBody(t, videoID)}
	require.NoError(t, w.handle(context.Background(), msg))

	assert.Empty(t, proc.calls)
	assert.Equal(t, []string{"m1"}, queue.acked)
}

func TestMissingSourceEventDropped(t *testing.T) {
	videoID := uuid.New()
	queue := &scriptQueue{}
	proc := &stubProcessor{}
	w := newTestWorker(queue, &stubStorage{exists: false}, &stubEnqueuer{video: queuedVideo(t, videoID)}, proc)

	msg := &port.Message{Handle: "m1", Body: storageEventBody(t, videoID)}
	require.NoError(t, w.handle(context.Background(), msg))

	assert.Empty(t, proc.calls)
	assert.Equal(t, []string{"m1"}, queue.acked)
}

func TestTransportErrorLeavesMessageUnacked(t *testing.T) {
	videoID := uuid.New()
	queue := &scriptQueue{}
	proc := &stubProcessor{err: errors.New("download source: connection reset")}
	w := newTestWorker(queue, &stubStorage{exists: true}, &stubEnqueuer{video: queuedVideo(t, videoID)}, proc)

	msg := &port.Message{Handle: "m1", Body: storageEventBody(t, videoID)}
	err := w.handle(context.Background(), msg)

	require.Error(t, err)
	assert.Empty(t, queue.acked, "message stays in flight for redelivery")
}

func TestTerminalProcessingFailureAcked(t *testing.T) {
	videoID := uuid.New()
	queue := &scriptQueue{}
	proc := &stubProcessor{err: &entity.SourceMissingError{Path: "uploads/u/v.mp4"}}
	w := newTestWorker(queue, &stubStorage{exists: true}, &stubEnqueuer{video: queuedVideo(t, videoID)}, proc)

	msg := &port.Message{Handle: "m1", Body: storageEventBody(t, videoID)}
	require.NoError(t, w.handle(context.Background(), msg))

	// The failure is already recorded on the record; redelivery cannot help.
	assert.Equal(t, []string{"m1"}, queue.acked)
}

func TestMalformedMessageDeadLettered(t *testing.T) {
	queue := &scriptQueue{}
	proc := &stubProcessor{}
	w := newTestWorker(queue, &stubStorage{}, &stubEnqueuer{}, proc)

	msg := &port.Message{Handle: "bad", Body: []byte(`{"something":"else"}`)}
	require.NoError(t, w.handle(context.Background(), msg))

	require.Len(t, queue.deadLetters, 1)
	assert.JSONEq(t, `{"something":"else"}`, string(queue.deadLetters[0]))
	assert.Equal(t, []string{"bad"}, queue.acked)
	assert.Empty(t, proc.calls)
}

func TestEventKeyWithoutVideoIDDeadLettered(t *testing.T) {
	queue := &scriptQueue{}
	w := newTestWorker(queue, &stubStorage{exists: true}, &stubEnqueuer{}, &stubProcessor{})

	body := []byte(`{"Records":[{"s3":{"object":{"key":"uploads/user-1/not-a-uuid.mp4"}}}]}`)
	msg := &port.Message{Handle: "bad", Body: body}
	require.NoError(t, w.handle(context.Background(), msg))

	assert.Len(t, queue.deadLetters, 1)
	assert.Equal(t, []string{"bad"}, queue.acked)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	queue := &scriptQueue{}
	w := newTestWorker(queue, &stubStorage{}, &stubEnqueuer{}, &stubProcessor{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestRunDrainsQueuedMessages(t *testing.T) {
	videoID := uuid.New()
	queue := &scriptQueue{messages: []*port.Message{
		{Handle: "m1", Body: storageEventBody(t, videoID)},
	}}
	proc := &stubProcessor{}
	w := newTestWorker(queue, &stubStorage{exists: true}, &stubEnqueuer{video: queuedVideo(t, videoID)}, proc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return queue.ackedCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, []uuid.UUID{videoID}, proc.calls)
}
