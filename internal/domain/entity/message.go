package entity

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ProcessingMessage is published by EnqueueVideo and consumed by the worker
// as a direct request to process one video.
type ProcessingMessage struct {
	VideoID uuid.UUID `json:"video_id"`
	UserID  string    `json:"user_id"`
}

// StorageEventNotification is the bucket-notification envelope delivered when
// a client finishes uploading a source object. Only the object key is used.
type StorageEventNotification struct {
	Records []StorageEventRecord `json:"Records"`
}

type StorageEventRecord struct {
	S3 StorageEventEntity `json:"s3"`
}

type StorageEventEntity struct {
	Object StorageEventObject `json:"object"`
}

type StorageEventObject struct {
	Key string `json:"key"`
}

// StatusMessage is the outbound event published after a terminal transition.
type StatusMessage struct {
	VideoID        uuid.UUID   `json:"video_id"`
	UserID         string      `json:"user_id"`
	Status         VideoStatus `json:"status"`
	FrameCount     int         `json:"frame_count,omitempty"`
	DownloadZipURL string      `json:"download_zip_url,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
}

// VideoIDFromObjectKey derives the video id from a storage object key shaped
// like "uploads/<userID>/<videoID>.mp4": last path segment, extension stripped.
func VideoIDFromObjectKey(key string) (uuid.UUID, error) {
	name := strings.TrimSuffix(path.Base(key), ".mp4")
	id, err := uuid.Parse(name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("derive video id from object key %q: %w", key, err)
	}
	return id, nil
}
