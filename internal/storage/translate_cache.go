package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log"
	"time"

	"github.com/LJTian/EstateNews/internal/collector"
	"github.com/redis/go-redis/v9"
)

const (
	translationCacheTTL     = 30 * 24 * time.Hour
	translationCacheTimeout = 2 * time.Second
)

// NewRedisClient 地址为空时返回 nil；ping 失败只告警，和数据库一样不阻止启动
func NewRedisClient(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}
	return rdb
}

// TranslationCache 在 Redis 中缓存标题译文，未命中时交给 Next 翻译。
// Redis 为 nil 时直接透传。
type TranslationCache struct {
	Redis  *redis.Client
	Next   collector.Translator
	Target string
	TTL    time.Duration
}

func NewTranslationCache(rdb *redis.Client, next collector.Translator, target string) *TranslationCache {
	return &TranslationCache{Redis: rdb, Next: next, Target: target, TTL: translationCacheTTL}
}

func (c *TranslationCache) Translate(text string) string {
	if c.Redis == nil {
		return c.Next.Translate(text)
	}

	ctx, cancel := context.WithTimeout(context.Background(), translationCacheTimeout)
	defer cancel()

	key := c.key(text)
	if cached, err := c.Redis.Get(ctx, key).Result(); err == nil && cached != "" {
		return cached
	} else if err != nil && err != redis.Nil {
		log.Printf("warn: translation cache get: %v", err)
	}

	out := c.Next.Translate(text)
	// 翻译失败时返回的是原文，不缓存，下次再试
	if out != "" && out != text {
		if err := c.Redis.Set(ctx, key, out, c.TTL).Err(); err != nil {
			log.Printf("warn: translation cache set: %v", err)
		}
	}
	return out
}

func (c *TranslationCache) key(text string) string {
	h := sha1.Sum([]byte(text))
	return "translate:" + c.Target + ":" + hex.EncodeToString(h[:])
}
