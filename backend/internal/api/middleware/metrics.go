package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"oa-hub/backend/pkg/metrics"
)

// Metrics 请求计数与耗时中间件，路由标签使用注册路径，避免路径参数导致标签膨胀
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := routeLabel(c)
		method := c.Request.Method

		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// routeLabel 返回注册的路由模板，未匹配时为 unmatched
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
