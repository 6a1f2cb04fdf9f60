// Package data provides adapters for the external key-value service.
package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKVRepo implements the core.KVStore port using Redis. Values are
// JSON-encoded strings; lists use RPUSH/LREM/LRANGE so append order is
// preserved.
type RedisKVRepo struct {
	client redis.UniversalClient
}

// NewRedisKVRepo creates a new RedisKVRepo with the given Redis client.
func NewRedisKVRepo(client redis.UniversalClient) *RedisKVRepo {
	return &RedisKVRepo{client: client}
}

// Get retrieves a value by key. Returns nil, nil when the key doesn't exist.
func (r *RedisKVRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return []byte(result), nil
}

// Set stores a value under key. A zero TTL stores without expiry.
func (r *RedisKVRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	return r.client.Set(ctx, key, value, ttl).Err()
}

// SetIfNotExists atomically sets a key only if it doesn't already exist.
// Uses SET with NX so the check and write are a single Redis command.
func (r *RedisKVRepo) SetIfNotExists(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	args := redis.SetArgs{Mode: "NX"}
	if ttl > 0 {
		args.TTL = ttl
	} else {
		args.KeepTTL = true
	}
	status, err := r.client.SetArgs(ctx, key, value, args).Result()
	if err != nil {
		// When the NX condition fails Redis returns a nil reply, which
		// go-redis surfaces as redis.Nil; that means "was not set".
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis SET NX: %w", err)
	}

	return status == "OK", nil
}

// Delete removes a key. Returns true if the key existed.
func (r *RedisKVRepo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}

	return result > 0, nil
}

// Exists checks if a key exists.
func (r *RedisKVRepo) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	result, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}

	return result > 0, nil
}

// ListAppend appends a member to the list at key, creating the list if
// absent.
func (r *RedisKVRepo) ListAppend(ctx context.Context, key string, member []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	return r.client.RPush(ctx, key, member).Err()
}

// ListRemove removes all occurrences of member from the list at key.
func (r *RedisKVRepo) ListRemove(ctx context.Context, key string, member []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	return r.client.LRem(ctx, key, 0, member).Err()
}

// ListMembers returns every member of the list at key, oldest first.
func (r *RedisKVRepo) ListMembers(ctx context.Context, key string) ([][]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	values, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return [][]byte{}, nil
		}
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	out := make([][]byte, 0, len(values))
	for _, v := range values {
		out = append(out, []byte(v))
	}
	return out, nil
}

// Health checks the health of the Redis connection.
func (r *RedisKVRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
