package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/framepipe/video-processing-service/internal/domain/port"
	"github.com/google/uuid"
	r "github.com/redis/go-redis/v9"
)

// Queue implements the at-least-once queue port on Redis. Pending payloads
// live in a list; a received message moves to an in-flight sorted set scored
// by its visibility deadline, with the payload kept in a hash. Expired
// in-flight entries are moved back to the pending list on the next Receive,
// which is what makes an unacknowledged message visible again.
type Queue struct {
	rdb         *r.Client
	queueKey    string
	inflightKey string
	payloadKey  string
	dlqKey      string
}

type Config struct {
	QueueKey    string
	InflightKey string
	DLQKey      string
}

func New(rdb *r.Client, cfg Config) *Queue {
	return &Queue{
		rdb:         rdb,
		queueKey:    cfg.QueueKey,
		inflightKey: cfg.InflightKey,
		payloadKey:  cfg.InflightKey + ":payload",
		dlqKey:      cfg.DLQKey,
	}
}

// envelope wraps a payload with the delivery id used as the ack handle.
type envelope struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

func (q *Queue) Enqueue(ctx context.Context, payload []byte) error {
	data, err := json.Marshal(envelope{ID: uuid.NewString(), Body: payload})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.queueKey, data).Err(); err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}

func (q *Queue) Receive(ctx context.Context, maxWait, visibilityTimeout time.Duration) (*port.Message, error) {
	if err := q.requeueExpired(ctx); err != nil {
		return nil, fmt.Errorf("requeue expired messages: %w", err)
	}

	res, err := q.rdb.BRPop(ctx, maxWait, q.queueKey).Result()
	if errors.Is(err, r.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop message: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected brpop reply of length %d", len(res))
	}
	raw := res[1]

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	deadline := time.Now().Add(visibilityTimeout).Unix()
	pipe := q.rdb.TxPipeline()
	pipe.ZAdd(ctx, q.inflightKey, r.Z{Score: float64(deadline), Member: env.ID})
	pipe.HSet(ctx, q.payloadKey, env.ID, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("mark message in flight: %w", err)
	}

	return &port.Message{Handle: env.ID, Body: env.Body}, nil
}

func (q *Queue) Ack(ctx context.Context, handle string) error {
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey, handle)
	pipe.HDel(ctx, q.payloadKey, handle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack message %s: %w", handle, err)
	}
	return nil
}

func (q *Queue) DeadLetter(ctx context.Context, body []byte, reason string) error {
	entry, err := json.Marshal(struct {
		Reason   string          `json:"reason"`
		Body     json.RawMessage `json:"body"`
		FailedAt time.Time       `json:"failed_at"`
	}{Reason: reason, Body: body, FailedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.dlqKey, entry).Err(); err != nil {
		return fmt.Errorf("push dead letter: %w", err)
	}
	return nil
}

// requeueExpired moves messages whose visibility deadline has passed back to
// the pending list.
func (q *Queue) requeueExpired(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	ids, err := q.rdb.ZRangeByScore(ctx, q.inflightKey, &r.ZRangeBy{
		Min: "-inf", Max: now, Offset: 0, Count: 100,
	}).Result()
	if err != nil || len(ids) == 0 {
		return err
	}

	for _, id := range ids {
		raw, err := q.rdb.HGet(ctx, q.payloadKey, id).Result()
		if errors.Is(err, r.Nil) {
			// Payload already gone (acked concurrently); just drop the marker.
			q.rdb.ZRem(ctx, q.inflightKey, id)
			continue
		}
		if err != nil {
			return err
		}
		pipe := q.rdb.TxPipeline()
		pipe.LPush(ctx, q.queueKey, raw)
		pipe.ZRem(ctx, q.inflightKey, id)
		pipe.HDel(ctx, q.payloadKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
