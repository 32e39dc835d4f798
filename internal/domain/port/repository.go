package port

import (
	"context"

	"github.com/framepipe/video-processing-service/internal/domain/entity"
	"github.com/google/uuid"
)

// VideoRepository persists video records. FindByID returns
// entity.ErrVideoNotFound (wrapped) when no record exists. UpdateStatus is a
// narrow write path used to record a failure even when the in-memory video is
// in an inconsistent state.
type VideoRepository interface {
	Save(ctx context.Context, video *entity.Video) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error)
	FindAllByUserID(ctx context.Context, userID string) ([]*entity.Video, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.VideoStatus, errMsg string) error
}
