package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FeedCache кеширует страницы опубликованной ленты по схеме cache-aside.
// Ошибки Redis не фатальны: при недоступном кеше всегда идем в БД.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewFeedCache создает кеш ленты с заданным TTL.
func NewFeedCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *FeedCache {
	return &FeedCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("FeedCache"),
	}
}

// Key строит ключ кеша для конкретной страницы ленты.
func (c *FeedCache) Key(tag, category string, featured bool, cursor string, limit int) string {
	return fmt.Sprintf("feed:t=%s:c=%s:f=%t:cur=%s:l=%d", tag, category, featured, cursor, limit)
}

// GetJSON пытается получить ключ и распаковать его в dest.
// Возвращает (true, nil) при попадании, (false, nil) при промахе.
func (c *FeedCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON сериализует v и кладет под ключ с TTL кеша. Best-effort.
func (c *FeedCache) SetJSON(ctx context.Context, key string, v any) {
	if c == nil || c.client == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Failed to marshal feed page for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to store feed page in cache", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate сбрасывает все закешированные страницы ленты.
// Вызывается при публикации, снятии и редактировании историй.
func (c *FeedCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, "feed:*", 100).Result()
		if err != nil {
			c.logger.Warn("Failed to scan feed cache keys", zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("Failed to delete feed cache keys", zap.Error(err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("Feed cache invalidated")
}
