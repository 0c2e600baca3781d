package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"rbac-admin/models"
	"rbac-admin/services"
)

const currentUserKey = "current_user"

// RouteRule 路由注册时声明的访问规则
type RouteRule struct {
	Public      bool
	Roles       []string // 任意一个即可
	Permissions []string // 任意一个即可，格式 resource:action
}

type TokenVerifier interface {
	Verify(token string) (*services.Claims, error)
}

type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, claims *services.Claims) (*models.User, error)
}

type GuardDeps struct {
	Tokens     TokenVerifier
	Identities IdentityResolver
}

// Guard 依次执行认证、角色校验、权限校验，任一阶段失败即终止请求
func Guard(rule RouteRule, deps GuardDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rule.Public {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, services.ErrMissingToken)
			return
		}

		claims, err := deps.Tokens.Verify(token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		user, err := deps.Identities.ResolveIdentity(c.Request.Context(), claims)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(currentUserKey, user)

		if len(rule.Roles) > 0 && !services.HasAnyRole(user, rule.Roles) {
			AbortWithError(c, services.ErrInsufficientRole)
			return
		}

		// 每次请求重新计算权限，角色变更立即生效
		if len(rule.Permissions) > 0 && !services.DerivePermissions(user).Intersects(rule.Permissions) {
			AbortWithError(c, services.ErrInsufficientPermission)
			return
		}

		c.Next()
	}
}

// bearerToken 解析 "Bearer <token>"，scheme 不区分大小写
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser 返回 Guard 解析出的用户，公开路由上为 nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
