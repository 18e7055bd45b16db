package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefixes for view state and per-view selection hashes.
const (
	viewKeyPrefix      = "subtimeline:view:"
	selectionKeyPrefix = "subtimeline:sel:"
)

// maxViewWriteAttempts bounds the optimistic retries of SetView.
const maxViewWriteAttempts = 3

// redisStore implements Store on Redis so that view sessions survive
// restarts and are shared across replicas. Each write refreshes the TTL of
// both of the view's keys.
type redisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{redis: rdb, ttl: ttl}
}

func (s *redisStore) GetView(ctx context.Context, viewID string) (*ViewState, error) {
	data, err := s.redis.Get(ctx, viewKeyPrefix+viewID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading view state from Redis: %w", err)
	}

	var state ViewState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling view state: %w", err)
	}
	return &state, nil
}

func (s *redisStore) SetView(ctx context.Context, viewID string, state ViewState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling view state: %w", err)
	}

	key := viewKeyPrefix + viewID
	txf := func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			var stored ViewState
			if err := json.Unmarshal(prev, &stored); err == nil && !state.supersedes(&stored) {
				return ErrStaleView
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			pipe.Expire(ctx, selectionKeyPrefix+viewID, s.ttl)
			return nil
		})
		return err
	}

	// Another load of the same view may commit between WATCH and EXEC.
	for i := 0; i < maxViewWriteAttempts; i++ {
		err = s.redis.Watch(ctx, txf, key)
		if err != redis.TxFailedErr {
			break
		}
	}
	if errors.Is(err, ErrStaleView) {
		return ErrStaleView
	}
	if err != nil {
		return fmt.Errorf("storing view state in Redis: %w", err)
	}
	return nil
}

func (s *redisStore) GetSelection(ctx context.Context, viewID, subID string) (*Selection, error) {
	data, err := s.redis.HGet(ctx, selectionKeyPrefix+viewID, subID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading selection from Redis: %w", err)
	}

	var sel Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("unmarshaling selection: %w", err)
	}
	return &sel, nil
}

func (s *redisStore) SetSelection(ctx context.Context, viewID, subID string, sel Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshaling selection: %w", err)
	}

	key := selectionKeyPrefix + viewID
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, subID, data)
		pipe.Expire(ctx, key, s.ttl)
		pipe.Expire(ctx, viewKeyPrefix+viewID, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing selection in Redis: %w", err)
	}
	return nil
}

func (s *redisStore) Selections(ctx context.Context, viewID string) (map[string]Selection, error) {
	raw, err := s.redis.HGetAll(ctx, selectionKeyPrefix+viewID).Result()
	if err != nil {
		return nil, fmt.Errorf("reading selections from Redis: %w", err)
	}

	out := make(map[string]Selection, len(raw))
	for subID, data := range raw {
		var sel Selection
		if err := json.Unmarshal([]byte(data), &sel); err != nil {
			return nil, fmt.Errorf("unmarshaling selection %s: %w", subID, err)
		}
		out[subID] = sel
	}
	return out, nil
}
