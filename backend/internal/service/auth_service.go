package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"oa-hub/backend/internal/dto"
	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/repository"
	"oa-hub/backend/pkg/email"
	"oa-hub/backend/pkg/jwt"
	"oa-hub/backend/pkg/metrics"
	"oa-hub/backend/pkg/password"
	"oa-hub/backend/pkg/redis"
)

var (
	ErrInvalidCredentials  = errors.New("邮箱或密码错误")
	ErrAccountLocked       = errors.New("账号已被锁定")
	ErrAccountInactive     = errors.New("账号未激活或已停用")
	ErrInvalidRefreshToken = errors.New("刷新令牌无效或已失效")
)

// 登录结果标签
const (
	loginResultSuccess  = "success"
	loginResultInvalid  = "invalid_credentials"
	loginResultLocked   = "locked"
	loginResultInactive = "inactive"
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	GetCurrentUser(ctx context.Context, uid string) (*dto.AccountResponse, error)
}

type authService struct {
	repo    *repository.Repository
	hasher  *password.Hasher
	jwtMgr  *jwt.Manager
	rdb     *redis.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	hasher *password.Hasher,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:    repo,
		hasher:  hasher,
		jwtMgr:  jwtMgr,
		rdb:     rdb,
		metrics: m,
		logger:  logger,
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 按规范化邮箱查询账号
	account, err := s.repo.Account.GetByEmail(ctx, email.Normalize(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordLogin(loginResultInvalid)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询账号失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)，不可用密码永远不匹配
	if err := s.hasher.Check(req.Password, account.Password); err != nil {
		s.recordLogin(loginResultInvalid)
		return nil, ErrInvalidCredentials
	}

	// 3. 账号状态
	if account.Status == model.StatusLocked {
		s.recordLogin(loginResultLocked)
		return nil, ErrAccountLocked
	}
	if !account.CanLogin() {
		s.recordLogin(loginResultInactive)
		return nil, ErrAccountInactive
	}

	// 4. 记录登录时间
	now := time.Now()
	if err := s.repo.Account.UpdateLastLogin(ctx, account.UID, now); err != nil {
		s.logger.Error("更新最后登录时间失败", zap.String("uid", account.UID), zap.Error(err))
		return nil, err
	}
	account.LastLogin = &now

	// 5. 生成 Token 对
	resp, err := s.issueTokens(account, req.RememberMe)
	if err != nil {
		return nil, err
	}

	s.recordLogin(loginResultSuccess)
	s.logger.Info("账号登录", zap.String("uid", account.UID))
	return resp, nil
}

// ────────────────────── RefreshToken ──────────────────────

// RefreshToken 用 Refresh Token 换取新的 Token 对，旧 Refresh Token 加入黑名单
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	if s.rdb != nil {
		revoked, err := s.rdb.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("查询 Token 黑名单失败", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidRefreshToken
		}
	}

	account, err := s.repo.Account.GetByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("查询账号失败", zap.String("uid", claims.AccountID()), zap.Error(err))
		return nil, err
	}
	if account.Status == model.StatusLocked {
		return nil, ErrAccountLocked
	}
	if !account.CanLogin() {
		return nil, ErrAccountInactive
	}

	if err := s.Logout(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}

	return s.issueTokens(account, claims.RememberMe)
}

// ────────────────────── Logout ──────────────────────

// Logout 将 Token 的 jti 加入黑名单直至其过期
func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.rdb == nil || jti == "" {
		return nil
	}
	if err := s.rdb.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.String("jti", jti), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── GetCurrentUser ──────────────────────

func (s *authService) GetCurrentUser(ctx context.Context, uid string) (*dto.AccountResponse, error) {
	account, err := s.repo.Account.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error("查询账号失败", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	return toAccountResponse(account), nil
}

// ── 内部辅助方法 ──

func (s *authService) issueTokens(account *model.Account, rememberMe bool) (*dto.TokenResponse, error) {
	id := jwt.Identity{AccountID: account.UID, Role: account.Role(), DepartmentID: account.DepartmentID}

	accessToken, err := s.jwtMgr.GenerateAccessToken(id)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(id, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    dto.TokenType,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		Account:      *toAccountResponse(account),
	}, nil
}

func (s *authService) recordLogin(result string) {
	s.metrics.LoginAttempts.WithLabelValues(result).Inc()
}
