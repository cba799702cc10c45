// Package metrics 定义服务的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 服务指标集合
type Metrics struct {
	AccountsCreated *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New 创建并注册指标。reg 为 nil 时使用默认注册表
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		AccountsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oa",
			Name:      "accounts_created_total",
			Help:      "Number of accounts created, by kind (user/superuser).",
		}, []string{"kind"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oa",
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oa",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oa",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.AccountsCreated, m.LoginAttempts, m.HTTPRequests, m.HTTPDuration)
	return m
}

// NewNop 创建不注册到任何注册表的指标，供测试与 CLI 使用
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
