package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sanctuari/rfq-cli/internal/model"
)

// PayloadCache holds signup details between the signup request and the
// first successful sign-in. Take removes the entry so it is consumed once.
// Claim marks a magic-link ID as redeemed and reports false when it already
// was.
type PayloadCache interface {
	Put(ctx context.Context, p model.SignupPayload, ttl time.Duration) error
	Take(ctx context.Context, email string) (*model.SignupPayload, error)
	Claim(ctx context.Context, linkID string, ttl time.Duration) (bool, error)
}

const (
	redisKeyPrefix  = "rfq:signup:"
	redisLinkPrefix = "rfq:link:"
)

// RedisPayloadCache stores payloads in Redis.
type RedisPayloadCache struct {
	client redis.Cmdable
}

// NewRedisPayloadCache wraps a Redis client.
func NewRedisPayloadCache(client redis.Cmdable) *RedisPayloadCache {
	return &RedisPayloadCache{client: client}
}

// Put implements PayloadCache.
func (c *RedisPayloadCache) Put(ctx context.Context, p model.SignupPayload, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "auth: marshal signup payload")
	}
	return eris.Wrap(c.client.Set(ctx, redisKeyPrefix+normalizeEmail(p.Email), data, ttl).Err(),
		"auth: cache signup payload")
}

// Take implements PayloadCache. It uses GETDEL so concurrent callbacks
// cannot both consume the payload.
func (c *RedisPayloadCache) Take(ctx context.Context, email string) (*model.SignupPayload, error) {
	data, err := c.client.GetDel(ctx, redisKeyPrefix+normalizeEmail(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "auth: take signup payload")
	}
	var p model.SignupPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "auth: unmarshal signup payload")
	}
	return &p, nil
}

// Claim implements PayloadCache with SETNX, so exactly one caller wins.
func (c *RedisPayloadCache) Claim(ctx context.Context, linkID string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, redisLinkPrefix+linkID, 1, ttl).Result()
	if err != nil {
		return false, eris.Wrap(err, "auth: claim magic link")
	}
	return ok, nil
}

// MemoryPayloadCache keeps payloads in process memory. Entries are lost on
// restart.
type MemoryPayloadCache struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryPayloadCache creates an in-process cache.
func NewMemoryPayloadCache() *MemoryPayloadCache {
	return &MemoryPayloadCache{cache: cache.New(time.Hour, 10*time.Minute)}
}

// Put implements PayloadCache.
func (c *MemoryPayloadCache) Put(_ context.Context, p model.SignupPayload, ttl time.Duration) error {
	c.cache.Set(normalizeEmail(p.Email), p, ttl)
	return nil
}

// Take implements PayloadCache.
func (c *MemoryPayloadCache) Take(_ context.Context, email string) (*model.SignupPayload, error) {
	key := normalizeEmail(email)
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, nil
	}
	c.cache.Delete(key)
	p := v.(model.SignupPayload)
	return &p, nil
}

// Claim implements PayloadCache.
func (c *MemoryPayloadCache) Claim(_ context.Context, linkID string, ttl time.Duration) (bool, error) {
	return c.cache.Add("link:"+linkID, struct{}{}, ttl) == nil, nil
}
