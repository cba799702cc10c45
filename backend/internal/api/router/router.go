package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"oa-hub/backend/config"
	"oa-hub/backend/internal/api/handler"
	"oa-hub/backend/internal/api/middleware"
	"oa-hub/backend/internal/model"
	"oa-hub/backend/pkg/database"
	"oa-hub/backend/pkg/jwt"
	"oa-hub/backend/pkg/metrics"
	"oa-hub/backend/pkg/redis"
)

// Deps 路由依赖
type Deps struct {
	Config   *config.Config
	Handler  *handler.Handler
	JWT      *jwt.Manager
	Redis    *redis.Client // 可为 nil
	DB       *gorm.DB      // 可为 nil，用于健康检查
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// healthCheck 数据库不可用返回 503；Redis 为可选依赖，不可用时仅标记 degraded
func healthCheck(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		status := gin.H{"status": "ok", "db": "up"}

		if d.DB != nil {
			if err := database.Ping(ctx, d.DB); err != nil {
				d.Logger.Error("健康检查：数据库不可用", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "db": "down"})
				return
			}
		}
		if d.Redis != nil {
			status["redis"] = "up"
			if err := d.Redis.Ping(ctx); err != nil {
				d.Logger.Warn("健康检查：Redis 不可用", zap.Error(err))
				status["status"], status["redis"] = "degraded", "down"
			}
		}
		c.JSON(http.StatusOK, status)
	}
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(d Deps) *gin.Engine {
	cfg, h := d.Config, d.Handler

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger, "/health", "/metrics"))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	if cfg.Feature.MetricsEnabled && d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}

	// ── 健康检查 ──
	r.GET("/health", healthCheck(d))

	// ── Prometheus ──
	if cfg.Feature.MetricsEnabled && d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	admins := []string{model.RoleSuperuser, model.RoleStaff}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login",
				middleware.RateLimit(d.Redis, middleware.RateLimitRule{
					Name:   "login",
					Limit:  cfg.Auth.LoginRateLimit,
					Window: cfg.Auth.LoginRateWindow,
				}, d.Logger),
				h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(d.JWT, d.Redis))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 账号模块
			accounts := authorized.Group("/accounts")
			accounts.Use(middleware.RoleAuth(admins...))
			{
				accounts.GET("", h.Account.ListAccounts)
				accounts.POST("", h.Account.CreateAccount)
				accounts.POST("/superuser", middleware.RoleAuth(model.RoleSuperuser), h.Account.CreateSuperuser)
				accounts.POST("/import", h.Account.ImportAccounts)
				accounts.GET("/export", h.Export.ExportAccounts)
				accounts.GET("/:id", h.Account.GetAccount)
				accounts.PUT("/:id", h.Account.UpdateAccount)
				accounts.PUT("/:id/status", h.Account.SetStatus)
				accounts.PUT("/:id/active", h.Account.SetActive)
				accounts.POST("/:id/reset-password", h.Account.ResetPassword)
				accounts.DELETE("/:id", middleware.RoleAuth(model.RoleSuperuser), h.Account.DeleteAccount)
			}

			// 部门模块
			departments := authorized.Group("/departments")
			{
				departments.GET("", h.Department.ListDepartments)
				departments.GET("/:id", h.Department.GetDepartment)
				departments.GET("/:id/members", h.Department.GetMembers)
				departments.POST("", middleware.RoleAuth(admins...), h.Department.CreateDepartment)
				departments.PUT("/:id", middleware.RoleAuth(admins...), h.Department.UpdateDepartment)
				departments.PUT("/:id/leader", middleware.RoleAuth(admins...), h.Department.AssignLeader)
				departments.PUT("/:id/manager", middleware.RoleAuth(admins...), h.Department.AssignManager)
				departments.DELETE("/:id", middleware.RoleAuth(model.RoleSuperuser), h.Department.DeleteDepartment)
			}
		}
	}

	return r
}
