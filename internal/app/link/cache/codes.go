package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"linkcut.local/internal/platform/metrics"
)

const notFoundSentinel = "__nil__"

// MissCache 是跳转路径的 Redis 负缓存：只缓存"这个短码当前不可跳转"，
// 用来吸收对不存在/已失效短码的扫描式访问。
//
// 刻意只做负缓存：active/clickCount 这类可变状态每次请求都必须回源存储
// 重新读，正缓存会把过期翻转和点击计数读旧。短码被创建时负缓存条目会被
// 立刻清掉，TTL 也压得很短。
type MissCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMissCache(client *redis.Client) *MissCache {
	return &MissCache{
		client: client,
		ttl:    30 * time.Second,
	}
}

// Contains 返回该短码是否命中负缓存。Redis 出错时当作未命中，回源存储。
func (c *MissCache) Contains(ctx context.Context, code string) bool {
	res, err := c.client.Get(ctx, "lm:"+code).Result()
	if err != nil || res != notFoundSentinel {
		if err == redis.Nil {
			metrics.CacheOperations.WithLabelValues("miss_cache", "miss").Inc()
		}
		return false
	}
	metrics.CacheOperations.WithLabelValues("miss_cache", "hit_negative").Inc()
	return true
}

// MarkNotFound 记录一次不可跳转的结果。
// 用明确哨兵值，不用空字符串当哨兵（会把"未命中"和"命中空值"混在一起）。
func (c *MissCache) MarkNotFound(ctx context.Context, code string) error {
	return c.client.Set(ctx, "lm:"+code, notFoundSentinel, c.ttl).Err()
}

// Invalidate 清掉负缓存条目；创建成功后必须调用，否则新码在 TTL 内会被
// 误判为不存在。
func (c *MissCache) Invalidate(ctx context.Context, code string) error {
	return c.client.Del(ctx, "lm:"+code).Err()
}
