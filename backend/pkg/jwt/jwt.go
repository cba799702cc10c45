// Package jwt 签发与校验账号的 Access / Refresh Token。
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"oa-hub/backend/config"
)

const issuer = "oa-hub"

// Token 类型
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Identity 写入 Token 的账号身份
type Identity struct {
	AccountID    string
	Role         string
	DepartmentID *uint
}

// Claims 自定义 JWT 声明，账号 ID 存放在标准字段 sub 中
type Claims struct {
	Role         string `json:"role"`
	DepartmentID *uint  `json:"dept,omitempty"`
	TokenType    string `json:"typ"`
	RememberMe   bool   `json:"rem,omitempty"` // 仅 refresh token 使用
	jwtv5.RegisteredClaims
}

// AccountID 返回 Token 所属账号
func (c *Claims) AccountID() string {
	return c.Subject
}

// Identity 还原 Token 中的账号身份
func (c *Claims) Identity() Identity {
	return Identity{AccountID: c.Subject, Role: c.Role, DepartmentID: c.DepartmentID}
}

// Manager JWT 管理器
type Manager struct {
	secret                  []byte
	accessTokenTTL          time.Duration
	refreshTokenTTLDefault  time.Duration
	refreshTokenTTLRemember time.Duration
	now                     func() time.Time
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:                  []byte(cfg.JWTSecret),
		accessTokenTTL:          cfg.AccessTokenTTL,
		refreshTokenTTLDefault:  cfg.RefreshTokenTTLDefault,
		refreshTokenTTLRemember: cfg.RefreshTokenTTLRemember,
		now:                     time.Now,
	}
}

// AccessTokenTTL 返回 Access Token 有效期
func (m *Manager) AccessTokenTTL() time.Duration {
	return m.accessTokenTTL
}

// GenerateAccessToken 生成 Access Token
func (m *Manager) GenerateAccessToken(id Identity) (string, error) {
	return m.sign(id, Claims{TokenType: TokenTypeAccess}, m.accessTokenTTL)
}

// GenerateRefreshToken 生成 Refresh Token，rememberMe 为 true 时使用更长的有效期
func (m *Manager) GenerateRefreshToken(id Identity, rememberMe bool) (string, error) {
	ttl := m.refreshTokenTTLDefault
	if rememberMe {
		ttl = m.refreshTokenTTLRemember
	}
	return m.sign(id, Claims{TokenType: TokenTypeRefresh, RememberMe: rememberMe}, ttl)
}

func (m *Manager) sign(id Identity, claims Claims, ttl time.Duration) (string, error) {
	if id.AccountID == "" {
		return "", ErrTokenInvalid
	}

	now := m.now()
	claims.Role = id.Role
	claims.DepartmentID = id.DepartmentID
	claims.RegisteredClaims = jwtv5.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   id.AccountID,
		IssuedAt:  jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		Issuer:    issuer,
	}

	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken 解析并验证 Token（签名算法、签发者、有效期与 sub）
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtv5.ParseWithClaims(tokenString, claims, func(*jwtv5.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(issuer),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
