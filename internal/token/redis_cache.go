package token

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"mailgate/internal/config"
)

// RedisCache shares the token cache across processes. Cache errors degrade
// to misses; a Redis outage must never fail a send.
type RedisCache struct {
	rdb    *redis.Client
	maxTTL time.Duration
}

func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{rdb: rdb, maxTTL: cfg.TokenTTL}, nil
}

func redisKey(key string) string {
	return "mailgate:token:" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) (Token, bool) {
	data, err := c.rdb.Get(ctx, redisKey(key)).Bytes()
	if err == redis.Nil {
		return Token{}, false
	}
	if err != nil {
		log.Printf("Redis token cache read failed for %s: %v", key, err)
		return Token{}, false
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return Token{}, false
	}

	if time.Now().After(tok.ExpiresAt) {
		return Token{}, false
	}
	return tok, true
}

func (c *RedisCache) Put(ctx context.Context, key string, tok Token, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if c.maxTTL > 0 && ttl > c.maxTTL {
		ttl = c.maxTTL
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, redisKey(key), data, ttl).Err(); err != nil {
		log.Printf("Redis token cache write failed for %s: %v", key, err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, redisKey(key)).Err(); err != nil {
		log.Printf("Redis token cache delete failed for %s: %v", key, err)
	}
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
