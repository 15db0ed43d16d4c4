package shared

import "github.com/gin-gonic/gin"

// 鉴权中间件写入的上下文键
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextIsAdmin  = "is_admin"
)

// Username 从上下文取当前登录用户名，未登录为空串
func Username(c *gin.Context) string {
	value, ok := c.Get(ContextUsername)
	if !ok {
		return ""
	}
	if username, ok := value.(string); ok {
		return username
	}
	return ""
}

// IsAdmin 当前请求是否来自管理员
func IsAdmin(c *gin.Context) bool {
	value, ok := c.Get(ContextIsAdmin)
	if !ok {
		return false
	}
	admin, typeOK := value.(bool)
	return typeOK && admin
}
