package port

import "context"

// BlobStorage is the object store holding uploaded sources and produced
// artifacts. Keys are opaque to the core; PublicURL converts a key into the
// store's externally reachable download URL.
type BlobStorage interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	PresignedUploadURL(ctx context.Context, key, userID, videoID string) (string, error)
	PublicURL(key string) string
}
