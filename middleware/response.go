package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rbac-admin/services"
)

// AbortWithError 按 AuthError 输出错误响应，其他错误统一返回 500
func AbortWithError(c *gin.Context, err error) {
	if ae, ok := services.AsAuthError(err); ok {
		c.AbortWithStatusJSON(ae.Status, gin.H{
			"success": false,
			"code":    ae.Kind,
			"message": ae.Message,
		})
		return
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"code":    "internal_error",
		"message": "服务器内部错误",
	})
}
