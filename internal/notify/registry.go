package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"vouch/internal/sentinel"
)

// MemoryRegistry keeps review post handles in memory.
type MemoryRegistry struct {
	mu    sync.RWMutex
	posts map[string]string
}

// NewMemoryRegistry constructs an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{posts: make(map[string]string)}
}

func (r *MemoryRegistry) Put(_ context.Context, requesterID, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[requesterID] = postID
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, requesterID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	postID, ok := r.posts[requesterID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return postID, nil
}

func (r *MemoryRegistry) Delete(_ context.Context, requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, requesterID)
	return nil
}

// registryTTL bounds how long an orphaned post handle can linger in Redis.
const registryTTL = 30 * 24 * time.Hour

// RedisRegistry keeps review post handles in Redis so they survive restarts
// and are shared across instances.
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry connects a registry to the given Redis address.
func NewRedisRegistry(addr string) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisRegistry{client: client}, nil
}

func registryKey(requesterID string) string {
	return "vouch:review-post:" + requesterID
}

func (r *RedisRegistry) Put(ctx context.Context, requesterID, postID string) error {
	if err := r.client.Set(ctx, registryKey(requesterID), postID, registryTTL).Err(); err != nil {
		return fmt.Errorf("register review post: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, requesterID string) (string, error) {
	postID, err := r.client.Get(ctx, registryKey(requesterID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("look up review post: %w", err)
	}
	return postID, nil
}

func (r *RedisRegistry) Delete(ctx context.Context, requesterID string) error {
	if err := r.client.Del(ctx, registryKey(requesterID)).Err(); err != nil {
		return fmt.Errorf("remove review post: %w", err)
	}
	return nil
}

// Health checks if the Redis connection is healthy.
func (r *RedisRegistry) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
