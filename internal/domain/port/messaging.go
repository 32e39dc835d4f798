package port

import "context"

// StatusPublisher fans out terminal state changes to interested services.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}
