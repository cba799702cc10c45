package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"oa-hub/backend/config"
	"oa-hub/backend/internal/dto"
	"oa-hub/backend/internal/service"
	"oa-hub/backend/pkg/password"
	"oa-hub/backend/pkg/response"
	"oa-hub/backend/pkg/validation"
)

const refreshCookieName = "refresh_token"

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc    service.AuthService
	accountSvc service.AccountService
	cfg        *config.AuthConfig
}

// NewAuthHandler 创建 AuthHandler，cfg 为 nil 时使用非 Secure Cookie 与默认有效期
func NewAuthHandler(authSvc service.AuthService, accountSvc service.AccountService, cfg *config.AuthConfig) *AuthHandler {
	if cfg == nil {
		cfg = &config.AuthConfig{}
	}
	return &AuthHandler{authSvc: authSvc, accountSvc: accountSvc, cfg: cfg}
}

// Login 邮箱登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	maxAge := int(h.cfg.RefreshTokenTTLDefault.Seconds())
	if req.RememberMe {
		maxAge = int(h.cfg.RefreshTokenTTLRemember.Seconds())
	}
	h.setRefreshCookie(c, result.RefreshToken, maxAge)

	response.OK(c, result)
}

// RefreshToken 刷新 Token，优先读取请求体，其次读取 Cookie
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		cookie, cerr := c.Cookie(refreshCookieName)
		if cerr != nil || cookie == "" {
			response.BadRequest(c, response.CodeValidation, "缺少 refresh_token")
			return
		}
		req.RefreshToken = cookie
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, 0)
	response.OK(c, result)
}

// Logout 登出：当前 Access Token 加入黑名单并清除 Cookie
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp := GetTokenInfo(c)
	if err := h.authSvc.Logout(c.Request.Context(), jti, exp); err != nil {
		response.InternalError(c)
		return
	}

	h.setRefreshCookie(c, "", -1)
	response.OK(c, nil)
}

// GetCurrentUser 获取当前登录账号
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	account, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, account)
}

// ChangePassword 修改本人密码
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	if err := h.accountSvc.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, nil)
}

// setRefreshCookie 写入 refresh_token Cookie；maxAge 为 0 时使用会话 Cookie，负数表示清除
func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, value, maxAge, "/api/v1/auth", "", h.cfg.CookieSecure, true)
}

// handleAuthError 将认证模块业务错误映射为 HTTP 响应
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "邮箱或密码错误")
	case errors.Is(err, service.ErrAccountLocked):
		response.Forbidden(c, response.CodeAccountLocked, "账号已被锁定")
	case errors.Is(err, service.ErrAccountInactive):
		response.Forbidden(c, response.CodeAccountInactive, "账号未激活或已停用")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Unauthorized(c, response.CodeInvalidRefreshToken, "刷新令牌无效或已失效")
	case errors.Is(err, service.ErrOldPasswordMismatch):
		response.BadRequest(c, response.CodeOldPasswordMismatch, "原密码错误")
	case errors.Is(err, password.ErrTooLong):
		response.ValidationFailed(c, map[string]string{"new_password": passwordTooLongMsg})
	case errors.Is(err, service.ErrAccountNotFound):
		response.NotFound(c, response.CodeAccountNotFound, "账号不存在")
	default:
		response.InternalError(c)
	}
}
