package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"oa-hub/backend/config"
	"oa-hub/backend/internal/api/handler"
	"oa-hub/backend/internal/api/router"
	"oa-hub/backend/internal/repository"
	"oa-hub/backend/internal/service"
	"oa-hub/backend/pkg/database"
	"oa-hub/backend/pkg/jwt"
	applogger "oa-hub/backend/pkg/logger"
	"oa-hub/backend/pkg/metrics"
	"oa-hub/backend/pkg/password"
	"oa-hub/backend/pkg/redis"
	"oa-hub/backend/pkg/validation"
)

func main() {
	cfg, err := config.Load(os.Getenv("OA_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("服务异常退出", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// run 组装依赖并阻塞到 ctx 取消，随后优雅关闭
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("OA 账号服务启动中",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("account_import", cfg.Account.ImportEnabled),
	)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ── 存储 ──
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return err
	}

	// Redis 可选：不可用时吊销与限流失效，服务照常启动
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 不可用，令牌吊销与登录限流已关闭", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	// ── 组装 ──
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	jwtMgr := jwt.NewManager(&cfg.Auth)

	validation.InitGin()
	svc := service.NewService(repository.NewRepository(db), password.NewHasher(cfg.Auth.BcryptCost), jwtMgr, rdb, m, logger)

	engine := router.Setup(router.Deps{
		Config:   cfg,
		Handler:  handler.NewHandler(cfg, svc),
		JWT:      jwtMgr,
		Redis:    rdb,
		DB:       db,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP 服务器异常: %w", err)
	case <-ctx.Done():
	}

	logger.Info("收到关闭信号，开始优雅关闭")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭异常: %w", err)
	}

	logger.Info("服务器已关闭")
	return nil
}
