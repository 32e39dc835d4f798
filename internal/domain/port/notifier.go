package port

import "context"

// FailureNotifier alerts an operator about a video that ended up FAILED.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, videoID, videoKey, errorMsg string) error
}
