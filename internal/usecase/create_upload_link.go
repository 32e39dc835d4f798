package usecase

import (
	"context"
	"fmt"

	"github.com/framepipe/video-processing-service/internal/domain/entity"
	"github.com/framepipe/video-processing-service/internal/domain/port"
	"github.com/google/uuid"
)

// UploadLink pairs a freshly created video record with the presigned URL the
// client uses to upload the source bytes directly to storage.
type UploadLink struct {
	Video        *entity.Video
	PresignedURL string
}

type CreateUploadLinkUseCase struct {
	storage port.BlobStorage
	repo    port.VideoRepository
}

func NewCreateUploadLinkUseCase(storage port.BlobStorage, repo port.VideoRepository) *CreateUploadLinkUseCase {
	return &CreateUploadLinkUseCase{storage: storage, repo: repo}
}

func (uc *CreateUploadLinkUseCase) Execute(ctx context.Context, userID string) (*UploadLink, error) {
	videoID := uuid.New()
	key := fmt.Sprintf("uploads/%s/%s.mp4", userID, videoID)

	video, err := entity.NewVideo(videoID, userID, key)
	if err != nil {
		return nil, err
	}

	url, err := uc.storage.PresignedUploadURL(ctx, key, userID, videoID.String())
	if err != nil {
		return nil, fmt.Errorf("create presigned upload url: %w", err)
	}

	if err := uc.repo.Save(ctx, video); err != nil {
		return nil, fmt.Errorf("save video record: %w", err)
	}

	return &UploadLink{Video: video, PresignedURL: url}, nil
}
