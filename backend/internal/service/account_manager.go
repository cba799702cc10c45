package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/repository"
	apperrors "oa-hub/backend/pkg/errors"
	"oa-hub/backend/pkg/metrics"
	"oa-hub/backend/pkg/password"
)

// ── 账号创建业务错误 ──

var (
	ErrUsernameRequired      = errors.New("必须设置用户名")
	ErrSuperuserNotStaff     = errors.New("超级用户必须设置 is_staff=true")
	ErrSuperuserNotSuperuser = errors.New("超级用户必须设置 is_superuser=true")
	ErrInvalidAccount        = fmt.Errorf("账号信息不合法: %w", apperrors.ErrValidation)
	ErrEmailExists           = fmt.Errorf("邮箱已被使用: %w", apperrors.ErrConflict)
	ErrDepartmentNotFound    = errors.New("部门不存在")
)

const (
	accountKindUser      = "user"
	accountKindSuperuser = "superuser"
)

// ExtraFields 创建账号时的可选字段，nil 表示未设置
type ExtraFields struct {
	FirstName    *string
	LastName     *string
	Telephone    *string
	IsStaff      *bool
	IsSuperuser  *bool
	IsActive     *bool
	Status       *model.AccountStatus
	DepartmentID *uint
}

func (f *ExtraFields) clone() ExtraFields {
	if f == nil {
		return ExtraFields{}
	}
	return *f
}

// AccountManager 账号创建入口：普通账号与超级用户
type AccountManager interface {
	CreateUser(ctx context.Context, username, email, rawPassword string, extra *ExtraFields) (*model.Account, error)
	CreateSuperuser(ctx context.Context, username, email, rawPassword string, extra *ExtraFields) (*model.Account, error)
}

type accountManager struct {
	repo    *repository.Repository
	hasher  *password.Hasher
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAccountManager 创建 AccountManager 实例
func NewAccountManager(repo *repository.Repository, hasher *password.Hasher, m *metrics.Metrics, logger *zap.Logger) AccountManager {
	return newAccountManager(repo, hasher, m, logger)
}

func newAccountManager(repo *repository.Repository, hasher *password.Hasher, m *metrics.Metrics, logger *zap.Logger) *accountManager {
	return &accountManager{repo: repo, hasher: hasher, metrics: m, logger: logger}
}

// withRepo 返回绑定到指定 Repository（通常是事务）的副本
func (m *accountManager) withRepo(repo *repository.Repository) *accountManager {
	return newAccountManager(repo, m.hasher, m.metrics, m.logger)
}

// ────────────────────── CreateUser ──────────────────────

// CreateUser 创建普通账号，is_staff / is_superuser 默认为 false
func (m *accountManager) CreateUser(ctx context.Context, username, email, rawPassword string, extra *ExtraFields) (*model.Account, error) {
	fields := extra.clone()
	if fields.IsStaff == nil {
		fields.IsStaff = boolPtr(false)
	}
	if fields.IsSuperuser == nil {
		fields.IsSuperuser = boolPtr(false)
	}
	return m.create(ctx, username, email, rawPassword, fields, accountKindUser)
}

// ────────────────────── CreateSuperuser ──────────────────────

// CreateSuperuser 创建超级用户，is_staff / is_superuser 默认为 true 且不允许显式设为 false
func (m *accountManager) CreateSuperuser(ctx context.Context, username, email, rawPassword string, extra *ExtraFields) (*model.Account, error) {
	fields := extra.clone()
	if fields.IsStaff == nil {
		fields.IsStaff = boolPtr(true)
	}
	if fields.IsSuperuser == nil {
		fields.IsSuperuser = boolPtr(true)
	}

	if !*fields.IsStaff {
		return nil, ErrSuperuserNotStaff
	}
	if !*fields.IsSuperuser {
		return nil, ErrSuperuserNotSuperuser
	}
	return m.create(ctx, username, email, rawPassword, fields, accountKindSuperuser)
}

// create 公共创建路径：校验 → 规范化 → 哈希 → 持久化
func (m *accountManager) create(ctx context.Context, username, email, rawPassword string, fields ExtraFields, kind string) (*model.Account, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrUsernameRequired
	}

	account := &model.Account{
		Username:    username,
		Email:       email,
		IsStaff:     *fields.IsStaff,
		IsSuperuser: *fields.IsSuperuser,
		IsActive:    true,
		Status:      model.StatusActivated,
	}
	if fields.FirstName != nil {
		account.FirstName = *fields.FirstName
	}
	if fields.LastName != nil {
		account.LastName = *fields.LastName
	}
	if fields.Telephone != nil {
		account.Telephone = *fields.Telephone
	}
	if fields.IsActive != nil {
		account.IsActive = *fields.IsActive
	}
	if fields.Status != nil {
		account.Status = *fields.Status
	}

	account.Clean()
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	}

	if err := password.CheckLength(rawPassword); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	}

	if fields.DepartmentID != nil {
		if _, err := m.repo.Department.GetByID(ctx, *fields.DepartmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrDepartmentNotFound
			}
			m.logger.Error("查询部门失败", zap.Uint("department_id", *fields.DepartmentID), zap.Error(err))
			return nil, err
		}
		account.DepartmentID = fields.DepartmentID
	}

	// 预检仅用于提前返回，并发下由数据库唯一索引兜底
	if _, err := m.repo.Account.GetByEmail(ctx, account.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		m.logger.Error("查询邮箱失败", zap.Error(err))
		return nil, err
	}

	hash, err := m.hasher.Make(rawPassword)
	if err != nil {
		m.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}
	account.Password = hash

	if err := m.repo.Account.Create(ctx, account); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		m.logger.Error("创建账号失败", zap.String("email", account.Email), zap.Error(err))
		return nil, err
	}

	m.metrics.AccountsCreated.WithLabelValues(kind).Inc()
	m.logger.Info("账号已创建",
		zap.String("uid", account.UID),
		zap.String("email", account.Email),
		zap.String("role", account.Role()),
	)
	return account, nil
}

func boolPtr(b bool) *bool { return &b }
