package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rbac-admin/middleware"
	"rbac-admin/services"
)

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// respondError AuthError 按其状态码返回，其余为 500
func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

func respondBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"code":    services.ErrInvalidInput.Kind,
		"message": services.ErrInvalidInput.Message,
		"error":   err.Error(),
	})
}
