package servicetest

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys stands in for the redis SETNX store behind the idempotency middleware.
type Keys struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewKeys() *Keys {
	return &Keys{keys: map[string]struct{}{}}
}

func (k *Keys) SetNX(_ context.Context, key string, _ any, _ time.Duration) *redis.BoolCmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	k.keys[key] = struct{}{}
	return redis.NewBoolResult(true, nil)
}

func (k *Keys) Del(_ context.Context, keys ...string) *redis.IntCmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		delete(k.keys, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
