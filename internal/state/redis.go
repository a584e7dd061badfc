package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/af-corp/aireader-gateway/internal/types"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "aireader:route:"

func redisActiveKey() string { return redisKeyPrefix + "active" }

func redisCursorKey(kind types.Kind) string { return redisKeyPrefix + "cursors:" + string(kind) }

// RedisStore keeps the active pointer in a string key and cursors in one
// hash per kind, so every write is a single SET or HSET.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot()
	snap.Active = active

	for _, kind := range types.Kinds {
		fields, err := s.rdb.HGetAll(ctx, redisCursorKey(kind)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis hgetall %s cursors: %w", kind, err)
		}
		for key, raw := range fields {
			idx, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}
			snap.SetCursor(kind, key, idx)
		}
	}
	return snap, nil
}

func (s *RedisStore) Active(ctx context.Context) (int, error) {
	idx, err := s.rdb.Get(ctx, redisActiveKey()).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get active: %w", err)
	}
	return idx, nil
}

func (s *RedisStore) SetActive(ctx context.Context, index int) error {
	if err := s.rdb.Set(ctx, redisActiveKey(), index, 0).Err(); err != nil {
		return fmt.Errorf("redis set active: %w", err)
	}
	return nil
}

func (s *RedisStore) Cursor(ctx context.Context, kind types.Kind, key string) (int, error) {
	idx, err := s.rdb.HGet(ctx, redisCursorKey(kind), key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis hget %s cursor: %w", kind, err)
	}
	return idx, nil
}

func (s *RedisStore) SetCursor(ctx context.Context, kind types.Kind, key string, index int) error {
	if err := s.rdb.HSet(ctx, redisCursorKey(kind), key, index).Err(); err != nil {
		return fmt.Errorf("redis hset %s cursor: %w", kind, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys := []string{redisActiveKey()}
	for _, kind := range types.Kinds {
		keys = append(keys, redisCursorKey(kind))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del routing state: %w", err)
	}
	return nil
}
