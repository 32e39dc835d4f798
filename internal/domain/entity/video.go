package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type VideoStatus string

const (
	StatusAwaitingUpload VideoStatus = "AWAITING_UPLOAD"
	StatusQueued         VideoStatus = "QUEUED"
	StatusProcessing     VideoStatus = "PROCESSING"
	StatusCompleted      VideoStatus = "COMPLETED"
	StatusFailed         VideoStatus = "FAILED"
)

// ParseStatus converts a persisted status string back into a VideoStatus.
// Unrecognized values are an error, never silently accepted.
func ParseStatus(s string) (VideoStatus, error) {
	switch VideoStatus(s) {
	case StatusAwaitingUpload, StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return VideoStatus(s), nil
	}
	return "", fmt.Errorf("unrecognized video status %q", s)
}

// Video is the processing lifecycle record for one uploaded video.
// Identity fields (ID, UserID, OriginalPath) are immutable after creation;
// only Status, FrameURLs, DownloadZipURL and ErrorMessage change over time.
type Video struct {
	ID             uuid.UUID
	UserID         string
	OriginalPath   string
	Status         VideoStatus
	FrameURLs      []string
	DownloadZipURL string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewVideo(id uuid.UUID, userID, originalPath string) (*Video, error) {
	if id == uuid.Nil || userID == "" || originalPath == "" {
		return nil, errors.New("invalid input data for creating a video")
	}
	now := time.Now().UTC()
	return &Video{
		ID:           id,
		UserID:       userID,
		OriginalPath: originalPath,
		Status:       StatusAwaitingUpload,
		FrameURLs:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanEnqueue reports whether the video may (re)enter the queue. Anything
// already processing or in a terminal state must not be re-queued.
func (v *Video) CanEnqueue() bool {
	return v.Status == StatusAwaitingUpload || v.Status == StatusQueued
}

func (v *Video) MarkQueued() {
	v.Status = StatusQueued
	v.UpdatedAt = time.Now().UTC()
}

func (v *Video) MarkProcessing() {
	v.Status = StatusProcessing
	v.UpdatedAt = time.Now().UTC()
}

func (v *Video) MarkCompleted(frameURLs []string, downloadZipURL string) {
	v.Status = StatusCompleted
	v.FrameURLs = frameURLs
	v.DownloadZipURL = downloadZipURL
	v.ErrorMessage = ""
	v.UpdatedAt = time.Now().UTC()
}

func (v *Video) MarkFailed(errMsg string) {
	v.Status = StatusFailed
	v.ErrorMessage = errMsg
	v.UpdatedAt = time.Now().UTC()
}
