package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"oa-hub/backend/pkg/jwt"
	"oa-hub/backend/pkg/redis"
	"oa-hub/backend/pkg/response"
)

// 认证中间件写入 gin.Context 的键
const (
	CtxAccountID    = "user_id"
	CtxRole         = "role"
	CtxDepartmentID = "department_id"
	CtxTokenJTI     = "token_jti"
	CtxTokenExp     = "token_exp"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token；rdb 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "缺少认证头或格式无效")
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			abortUnauthorized(c, "Token 已过期")
			return
		case err != nil:
			abortUnauthorized(c, "Token 无效")
			return
		case claims.TokenType != jwt.TokenTypeAccess:
			abortUnauthorized(c, "Token 类型无效")
			return
		}

		// Redis 出错时降级放行
		if rdb != nil {
			if revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID); err == nil && revoked {
				abortUnauthorized(c, "Token 已失效")
				return
			}
		}

		c.Set(CtxAccountID, claims.AccountID())
		c.Set(CtxRole, claims.Role)
		c.Set(CtxDepartmentID, claims.DepartmentID)
		c.Set(CtxTokenJTI, claims.ID)
		c.Set(CtxTokenExp, claims.ExpiresAt.Time)

		c.Next()
	}
}

// RoleAuth 角色权限中间件，当前账号须具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			abortUnauthorized(c, "未认证")
			return
		}

		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, response.CodeForbidden, "无权限访问")
			c.Abort()
			return
		}

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	response.Unauthorized(c, response.CodeUnauthenticated, msg)
	c.Abort()
}
