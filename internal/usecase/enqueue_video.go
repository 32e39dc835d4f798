package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/framepipe/video-processing-service/internal/domain/entity"
	"github.com/framepipe/video-processing-service/internal/domain/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EnqueueVideoUseCase moves a video into the QUEUED state and publishes a
// processing message. Repeated invocations are safe: a video that is already
// processing or finished is returned unchanged, and republishing for a video
// still AWAITING_UPLOAD or QUEUED only produces a duplicate message that the
// consumer-side status guards absorb.
type EnqueueVideoUseCase struct {
	repo   port.VideoRepository
	queue  port.Queue
	logger *zap.Logger
}

func NewEnqueueVideoUseCase(repo port.VideoRepository, queue port.Queue, logger *zap.Logger) *EnqueueVideoUseCase {
	return &EnqueueVideoUseCase{repo: repo, queue: queue, logger: logger}
}

func (uc *EnqueueVideoUseCase) Execute(ctx context.Context, videoID uuid.UUID) (*entity.Video, error) {
	video, err := uc.repo.FindByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if !video.CanEnqueue() {
		uc.logger.Debug("video not enqueueable, returning unchanged",
			zap.String("video_id", videoID.String()),
			zap.String("status", string(video.Status)),
		)
		return video, nil
	}

	payload, err := json.Marshal(entity.ProcessingMessage{VideoID: video.ID, UserID: video.UserID})
	if err != nil {
		return nil, fmt.Errorf("marshal processing message: %w", err)
	}

	// Publish before persisting: a crash in between leaves the record
	// AWAITING_UPLOAD with a duplicate message in flight, which the next
	// invocation absorbs.
	if err := uc.queue.Enqueue(ctx, payload); err != nil {
		return nil, fmt.Errorf("enqueue video %s: %w", videoID, err)
	}

	video.MarkQueued()
	if err := uc.repo.Save(ctx, video); err != nil {
		return nil, fmt.Errorf("save queued video %s: %w", videoID, err)
	}

	uc.logger.Info("video enqueued for processing", zap.String("video_id", videoID.String()))
	return video, nil
}
