package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"oa-hub/backend/internal/api/middleware"
	"oa-hub/backend/internal/service"
	"oa-hub/backend/pkg/response"
)

// MustGetUserID 提取当前账号 ID
// 认证中间件未注入时写入 401 并返回 false，调用方应直接 return
func MustGetUserID(c *gin.Context) (string, bool) {
	uid := c.GetString(middleware.CtxAccountID)
	if uid == "" {
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
		return "", false
	}
	return uid, true
}

// passwordTooLongMsg 明文超过 bcrypt 上限时的字段提示
const passwordTooLongMsg = "must be at most 72 bytes long"

// currentOperator 以当前账号 ID 与角色构造操作人
func currentOperator(c *gin.Context) (service.Operator, bool) {
	uid, ok := MustGetUserID(c)
	if !ok {
		return service.Operator{}, false
	}
	return service.Operator{ID: uid, Role: c.GetString(middleware.CtxRole)}, true
}

// GetTokenInfo 提取当前 Access Token 的 jti 与过期时间
func GetTokenInfo(c *gin.Context) (string, time.Time) {
	return c.GetString(middleware.CtxTokenJTI), c.GetTime(middleware.CtxTokenExp)
}
