package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sponsorhub/internal/domain/events"
)

// Storage groups the cache stores the API uses. The aggregate cache is a
// read-through layer over the event_aggregates table: the table is the
// durable copy, Redis only absorbs event-page reads.
type Storage struct {
	Aggregates AggregateStore
}

type AggregateStore interface {
	Get(ctx context.Context, eventID int64) (*events.Aggregate, error)
	Set(ctx context.Context, agg *events.Aggregate) error
	Delete(ctx context.Context, eventID int64) error
}

func NewRedisStorage(client *redis.Client, ttl time.Duration) Storage {
	return Storage{
		Aggregates: &AggregateRedisStore{client: client, ttl: ttl},
	}
}

type AggregateRedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func aggregateKey(eventID int64) string {
	return fmt.Sprintf("event-aggregate:%d", eventID)
}

// Get returns (nil, nil) on a cache miss.
func (s *AggregateRedisStore) Get(ctx context.Context, eventID int64) (*events.Aggregate, error) {
	data, err := s.client.Get(ctx, aggregateKey(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var agg events.Aggregate
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

func (s *AggregateRedisStore) Set(ctx context.Context, agg *events.Aggregate) error {
	data, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, aggregateKey(agg.EventID), data, s.ttl).Err()
}

func (s *AggregateRedisStore) Delete(ctx context.Context, eventID int64) error {
	return s.client.Del(ctx, aggregateKey(eventID)).Err()
}
