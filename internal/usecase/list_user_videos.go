package usecase

import (
	"context"

	"github.com/framepipe/video-processing-service/internal/domain/entity"
	"github.com/framepipe/video-processing-service/internal/domain/port"
)

// VideoSummary is the caller-facing view of one video record. Only the
// stored error message is ever exposed, never internal diagnostics.
type VideoSummary struct {
	VideoID        string             `json:"videoId"`
	Status         entity.VideoStatus `json:"status"`
	FrameURLs      []string           `json:"frameUrls"`
	DownloadZipURL string             `json:"downloadZipUrl,omitempty"`
	Error          string             `json:"error,omitempty"`
}

type ListUserVideosUseCase struct {
	repo port.VideoRepository
}

func NewListUserVideosUseCase(repo port.VideoRepository) *ListUserVideosUseCase {
	return &ListUserVideosUseCase{repo: repo}
}

func (uc *ListUserVideosUseCase) Execute(ctx context.Context, userID string) ([]VideoSummary, error) {
	videos, err := uc.repo.FindAllByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]VideoSummary, 0, len(videos))
	for _, v := range videos {
		frameURLs := v.FrameURLs
		if frameURLs == nil {
			frameURLs = []string{}
		}
		summaries = append(summaries, VideoSummary{
			VideoID:        v.ID.String(),
			Status:         v.Status,
			FrameURLs:      frameURLs,
			DownloadZipURL: v.DownloadZipURL,
			Error:          v.ErrorMessage,
		})
	}
	return summaries, nil
}
