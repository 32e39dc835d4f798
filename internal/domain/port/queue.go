package port

import (
	"context"
	"time"
)

// Message is one received queue delivery. Handle identifies the delivery for
// acknowledgment; it is only valid while the visibility timeout holds.
type Message struct {
	Handle string
	Body   []byte
}

// Queue is an at-least-once message channel. Receive hides the returned
// message from other consumers for the visibility timeout; a message that is
// never acknowledged becomes eligible for redelivery once the timeout expires.
// Receive returns (nil, nil) when no message arrived within maxWait.
type Queue interface {
	Enqueue(ctx context.Context, payload []byte) error
	Receive(ctx context.Context, maxWait, visibilityTimeout time.Duration) (*Message, error)
	Ack(ctx context.Context, handle string) error

	// DeadLetter parks a payload that can never be processed (e.g. an
	// undecodable body) so an operator can inspect it later.
	DeadLetter(ctx context.Context, body []byte, reason string) error
}
