package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oa-hub/backend/pkg/redis"
	"oa-hub/backend/pkg/response"
)

// RateLimitRule 限流规则
type RateLimitRule struct {
	Name   string        // 规则名，参与 Redis key
	Limit  int           // 窗口内允许的最大请求数，<=0 表示不限流
	Window time.Duration // 滑动窗口时长
}

// RateLimit 基于 Redis 滑动窗口的速率限制中间件，按规则名 + 客户端 IP 计数
// rdb 为 nil 或 Redis 出错时降级放行
func RateLimit(rdb *redis.Client, rule RateLimitRule, logger *zap.Logger) gin.HandlerFunc {
	limitHeader := strconv.Itoa(rule.Limit)

	return func(c *gin.Context) {
		if rdb == nil || rule.Limit <= 0 {
			c.Next()
			return
		}

		key := rule.Name + ":" + c.ClientIP()
		res, err := rdb.CheckRateLimit(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			logger.Warn("限流检查失败，降级放行", zap.String("rule", rule.Name), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			logger.Warn("触发限流", zap.String("rule", rule.Name), zap.String("ip", c.ClientIP()))
			c.Header("Retry-After", strconv.Itoa(res.RetryAfterSeconds()))
			response.Error(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
