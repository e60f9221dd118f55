package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"staybook/internal/app/middleware"
)

// IdempotencyStore keeps idempotency records in Redis with a TTL, so replayed
// submissions within the window return the stored result instead of running
// the command again.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl, prefix: "idemp:"}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("redis: get idempotency record: %w", err)
	}
	var doc idempotencyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("redis: decode idempotency record: %w", err)
	}
	return doc.toRecord(key), true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	doc := idempotencyDocument{
		Payload:    rec.Payload,
		Error:      rec.Error,
		OccurredAt: rec.OccurredAt,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redis: encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+rec.Key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save idempotency record: %w", err)
	}
	return nil
}

type idempotencyDocument struct {
	Payload    []byte    `json:"payload,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (d idempotencyDocument) toRecord(key string) middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: key, Payload: d.Payload, Error: d.Error, OccurredAt: d.OccurredAt}
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
