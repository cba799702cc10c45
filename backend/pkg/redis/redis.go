// Package redis 封装账号服务对 Redis 的两类用法：访问令牌吊销名单与接口限流。
package redis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"oa-hub/backend/config"
)

const (
	revokedPrefix   = "oa:token:revoked:"
	rateLimitPrefix = "oa:rate_limit:"
)

// Client Redis 客户端
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
	now    func() time.Time
}

// NewClient 建立连接并在 5 秒内完成 Ping，失败时关闭连接
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	c := NewFromUniversal(rdb, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return c, nil
}

// NewFromUniversal 包装已有连接，测试中配合 miniredis 使用
func NewFromUniversal(rdb goredis.UniversalClient, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger, now: time.Now}
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ── 令牌吊销 ──

// BlacklistToken 吊销指定 jti，记录保留到令牌自然过期为止
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 判断 jti 是否已被吊销
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 限流 ──

// RateLimitResult 一次限流检查的结果
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // 仅在 Allowed 为 false 时有意义
}

// CheckRateLimit 以有序集合实现滑动窗口计数，key 为调用方给出的规则维度（不含前缀）
// 被拒绝的请求同样计入窗口
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := c.now()
	fullKey := rateLimitPrefix + key

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, fullKey, "0", strconv.FormatInt(now.Add(-window).UnixNano(), 10))
	pipe.ZAdd(ctx, fullKey, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, fullKey)
	oldest := pipe.ZRangeWithScores(ctx, fullKey, 0, 0)
	pipe.PExpire(ctx, fullKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, err
	}

	n := int(count.Val())
	if n <= limit {
		return RateLimitResult{Allowed: true, Remaining: limit - n}, nil
	}

	retry := window
	if zs := oldest.Val(); len(zs) > 0 {
		expireAt := time.Unix(0, int64(zs[0].Score)).Add(window)
		retry = expireAt.Sub(now)
	}
	return RateLimitResult{Allowed: false, RetryAfter: retry}, nil
}

// RetryAfterSeconds 向上取整为秒，至少 1 秒，用于 Retry-After 头
func (r RateLimitResult) RetryAfterSeconds() int {
	s := int(math.Ceil(r.RetryAfter.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
