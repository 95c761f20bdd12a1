package repository

import (
	"context"
	"fmt"
	"sync"

	"TradePull/internal/domain/repository"
	"TradePull/pkg/cache"
)

const statusKey = "system:status"

// RedisStatusBoard publishes operational fields to the system:status hash
// so collaborators outside this process can read them.
type RedisStatusBoard struct {
	redis *cache.Redis
}

// NewRedisStatusBoard creates a Redis-backed status board.
func NewRedisStatusBoard(redis *cache.Redis) repository.StatusBoard {
	return &RedisStatusBoard{redis: redis}
}

func (b *RedisStatusBoard) Set(ctx context.Context, fields map[string]string) error {
	if err := b.redis.HashSetAll(ctx, statusKey, fields); err != nil {
		return fmt.Errorf("status set: %w", err)
	}
	return nil
}

func (b *RedisStatusBoard) Snapshot(ctx context.Context) (map[string]string, error) {
	return b.redis.HashGetAll(ctx, statusKey)
}

// MemoryStatusBoard is the in-process status board for development and
// tests.
type MemoryStatusBoard struct {
	mu     sync.RWMutex
	fields map[string]string
}

// NewMemoryStatusBoard creates an in-memory status board.
func NewMemoryStatusBoard() repository.StatusBoard {
	return &MemoryStatusBoard{fields: make(map[string]string)}
}

func (b *MemoryStatusBoard) Set(ctx context.Context, fields map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range fields {
		b.fields[k] = v
	}
	return nil
}

func (b *MemoryStatusBoard) Snapshot(ctx context.Context) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.fields))
	for k, v := range b.fields {
		out[k] = v
	}
	return out, nil
}
