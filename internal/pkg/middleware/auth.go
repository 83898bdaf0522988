package middleware

import (
	"net/http"
	"strings"

	"gamevault/pkg/response"
	"gamevault/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// bearerToken 从 Authorization 头或 access_token 参数（WebSocket 无法自定义请求头）读取令牌
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("access_token"); token != "" {
			return token, true
		}
		return "", false
	}

	// 检查格式 "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", true
	}
	return parts[1], true
}

func setClaims(c *gin.Context, tokenString string) bool {
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
		c.Abort()
		return false
	}
	c.Set(ctxUserID, claims.UserID())
	c.Set(ctxRole, claims.Role)
	return true
}

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, present := bearerToken(c)
		if !present {
			response.Error(c, http.StatusUnauthorized, response.ErrLoginRequired, "Authorization header is required")
			c.Abort()
			return
		}
		if !setClaims(c, tokenString) {
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware 允许匿名访问；携带令牌时校验并注入用户
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, present := bearerToken(c)
		if present && !setClaims(c, tokenString) {
			return
		}
		c.Next()
	}
}

// GetUserID 已登录用户 ID，匿名时为空串
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
