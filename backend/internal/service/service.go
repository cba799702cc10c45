package service

import (
	"go.uber.org/zap"

	"oa-hub/backend/internal/repository"
	"oa-hub/backend/pkg/jwt"
	"oa-hub/backend/pkg/metrics"
	"oa-hub/backend/pkg/password"
	"oa-hub/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Manager    AccountManager
	Account    AccountService
	Department DepartmentService
	Auth       AuthService
	Export     ExportService
}

// NewService 创建 Service 聚合
// rdb 可为 nil，此时不启用 Token 黑名单
func NewService(
	repo *repository.Repository,
	hasher *password.Hasher,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	manager := NewAccountManager(repo, hasher, m, logger)
	return &Service{
		Manager:    manager,
		Account:    NewAccountService(repo, manager, hasher, m, logger),
		Department: NewDepartmentService(repo, logger),
		Auth:       NewAuthService(repo, hasher, jwtMgr, rdb, m, logger),
		Export:     NewExportService(repo, logger),
	}
}
