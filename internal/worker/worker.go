package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/framepipe/video-processing-service/internal/domain/entity"
	"github.com/framepipe/video-processing-service/internal/domain/port"
	"github.com/framepipe/video-processing-service/internal/infra/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Enqueuer normalizes a video's queue state (EnqueueVideo use case).
type Enqueuer interface {
	Execute(ctx context.Context, videoID uuid.UUID) (*entity.Video, error)
}

// Processor runs the extraction pipeline (ProcessVideo use case).
type Processor interface {
	Execute(ctx context.Context, videoID uuid.UUID) error
}

type Config struct {
	ReceiveWait       time.Duration
	VisibilityTimeout time.Duration
	IdleDelay         time.Duration
	ErrorDelay        time.Duration
}

// Worker is a single sequential queue consumer. It translates at-least-once,
// possibly duplicated delivery into effectively-once state transitions by
// leaning on the status guards in the use cases rather than message-level
// deduplication. Concurrency comes from running more worker processes; the
// queue's visibility timeout is the only mutual exclusion.
type Worker struct {
	queue        port.Queue
	storage      port.BlobStorage
	enqueueVideo Enqueuer
	processVideo Processor
	logger       *zap.Logger
	cfg          Config
}

func New(
	queue port.Queue,
	storage port.BlobStorage,
	enqueueVideo Enqueuer,
	processVideo Processor,
	logger *zap.Logger,
	cfg Config,
) *Worker {
	return &Worker{
		queue:        queue,
		storage:      storage,
		enqueueVideo: enqueueVideo,
		processVideo: processVideo,
		logger:       logger,
		cfg:          cfg,
	}
}

// Run polls the queue until ctx is cancelled. A handling error leaves the
// message unacknowledged so it reappears after the visibility timeout.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		zap.Duration("receive_wait", w.cfg.ReceiveWait),
		zap.Duration("visibility_timeout", w.cfg.VisibilityTimeout),
	)

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopping")
			return err
		}

		msg, err := w.queue.Receive(ctx, w.cfg.ReceiveWait, w.cfg.VisibilityTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("receive failed", zap.Error(err))
			w.sleep(ctx, w.cfg.ErrorDelay)
			continue
		}
		if msg == nil {
			w.sleep(ctx, w.cfg.IdleDelay)
			continue
		}

		if err := w.handle(ctx, msg); err != nil {
			w.logger.Error("message handling failed, leaving for redelivery", zap.Error(err))
			metrics.WorkerErrorsTotal.Inc()
			w.sleep(ctx, w.cfg.ErrorDelay)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *port.Message) error {
	var event entity.StorageEventNotification
	if err := json.Unmarshal(msg.Body, &event); err == nil && len(event.Records) > 0 {
		return w.handleStorageEvent(ctx, msg, event)
	}

	var direct entity.ProcessingMessage
	if err := json.Unmarshal(msg.Body, &direct); err != nil || direct.VideoID == uuid.Nil {
		return w.dropMalformed(ctx, msg, "unrecognized message shape")
	}

	log := w.logger.With(zap.String("video_id", direct.VideoID.String()))
	log.Info("processing message received")
	return w.process(ctx, msg, direct.VideoID, log)
}

func (w *Worker) handleStorageEvent(ctx context.Context, msg *port.Message, event entity.StorageEventNotification) error {
	key := event.Records[0].S3.Object.Key
	videoID, err := entity.VideoIDFromObjectKey(key)
	if err != nil {
		return w.dropMalformed(ctx, msg, err.Error())
	}

	log := w.logger.With(zap.String("video_id", videoID.String()), zap.String("object_key", key))
	log.Info("storage event received")

	video, err := w.enqueueVideo.Execute(ctx, videoID)
	if err != nil {
		if errors.Is(err, entity.ErrVideoNotFound) {
			// A notification for a record we never created cannot make
			// progress on redelivery.
			log.Warn("no video record for storage event, dropping")
			return w.drop(ctx, msg, "unknown_video")
		}
		return fmt.Errorf("enqueue video: %w", err)
	}

	if !video.CanEnqueue() {
		// Duplicate or late notification: the video is already in flight or
		// finished under another delivery.
		log.Info("video already handled, dropping notification", zap.String("status", string(video.Status)))
		return w.drop(ctx, msg, "bad_state")
	}

	exists, err := w.storage.Exists(ctx, video.OriginalPath)
	if err != nil {
		return fmt.Errorf("check source object: %w", err)
	}
	if !exists {
		log.Warn("source object missing, dropping notification")
		return w.drop(ctx, msg, "source_missing")
	}

	return w.process(ctx, msg, videoID, log)
}

func (w *Worker) process(ctx context.Context, msg *port.Message, videoID uuid.UUID, log *zap.Logger) error {
	if err := w.processVideo.Execute(ctx, videoID); err != nil {
		var srcMissing *entity.SourceMissingError
		if errors.Is(err, entity.ErrVideoNotFound) || errors.As(err, &srcMissing) {
			// The failure is recorded on the video record; a redelivery
			// cannot change the outcome, so the message is dropped.
			log.Warn("terminal processing failure, dropping message", zap.Error(err))
			return w.drop(ctx, msg, "terminal_failure")
		}
		return fmt.Errorf("process video %s: %w", videoID, err)
	}

	if err := w.queue.Ack(ctx, msg.Handle); err != nil {
		return fmt.Errorf("ack message: %w", err)
	}
	return nil
}

func (w *Worker) drop(ctx context.Context, msg *port.Message, reason string) error {
	metrics.MessagesDroppedTotal.WithLabelValues(reason).Inc()
	if err := w.queue.Ack(ctx, msg.Handle); err != nil {
		return fmt.Errorf("ack dropped message: %w", err)
	}
	return nil
}

func (w *Worker) dropMalformed(ctx context.Context, msg *port.Message, reason string) error {
	w.logger.Warn("dead-lettering malformed message",
		zap.String("reason", reason),
		zap.ByteString("body", msg.Body),
	)
	if err := w.queue.DeadLetter(ctx, msg.Body, reason); err != nil {
		return fmt.Errorf("dead-letter malformed message: %w", err)
	}
	return w.drop(ctx, msg, "malformed")
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
