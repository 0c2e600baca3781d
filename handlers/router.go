package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rbac-admin/middleware"
)

const loginPath = "/auth/login"

// RouterDeps 构建路由所需的依赖
type RouterDeps struct {
	Logger      *zap.Logger
	CORSOrigins []string

	Guard        middleware.GuardDeps
	Recorder     middleware.OperationRecorder
	LoginLimiter middleware.Limiter

	Auth      *AuthHandler
	Users     *UserHandler
	Dashboard *DashboardHandler
	Backups   *DatabaseBackupHandler

	// Health 返回存储状态，为 nil 时只返回 ok
	Health func(ctx context.Context) map[string]string
}

type route struct {
	method  string
	path    string
	rule    middleware.RouteRule
	handler gin.HandlerFunc
}

var (
	public        = middleware.RouteRule{Public: true}
	authenticated = middleware.RouteRule{}
)

func perms(p ...string) middleware.RouteRule {
	return middleware.RouteRule{Permissions: p}
}

func adminWith(p ...string) middleware.RouteRule {
	return middleware.RouteRule{Roles: []string{"admin"}, Permissions: p}
}

func (d RouterDeps) routes() []route {
	return []route{
		// 认证
		{http.MethodPost, loginPath, public, d.Auth.Login},
		{http.MethodPost, "/auth/register", public, d.Auth.Register},
		{http.MethodGet, "/auth/profile", authenticated, d.Auth.Profile},

		// 用户管理
		{http.MethodPost, "/users", adminWith("user:create"), d.Users.CreateUser},
		{http.MethodGet, "/users", perms("user:read"), d.Users.ListUsers},
		{http.MethodGet, "/users/:id", perms("user:read"), d.Users.GetUser},
		{http.MethodPatch, "/users/:id", perms("user:update"), d.Users.UpdateUser},
		{http.MethodDelete, "/users/:id", adminWith("user:delete"), d.Users.DeleteUser},
		{http.MethodPut, "/users/:id/roles", adminWith("role:assign"), d.Users.AssignRoles},

		// 角色
		{http.MethodGet, "/roles", perms("role:read"), d.Users.ListRoles},

		// 统计与审计
		{http.MethodGet, "/dashboard/statistics", authenticated, d.Dashboard.GetStatistics},
		{http.MethodGet, "/operation-logs", perms("log:read"), d.Dashboard.GetOperationLogs},

		// 数据库备份
		{http.MethodGet, "/backups", adminWith(), d.Backups.GetBackupHistory},
		{http.MethodPost, "/backups", adminWith(), d.Backups.ManualBackup},

		{http.MethodGet, "/health", public, d.health},
	}
}

// Router 创建 gin 路由，每条路由在注册时绑定访问规则
func Router(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(d.Logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS 配置
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(d.CORSOrigins) == 0 || (len(d.CORSOrigins) == 1 && d.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = d.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	for _, rt := range d.routes() {
		chain := []gin.HandlerFunc{middleware.Guard(rt.rule, d.Guard)}
		switch {
		case rt.path == loginPath:
			if d.LoginLimiter != nil {
				chain = append(chain, middleware.RateLimit(d.LoginLimiter, d.Logger))
			}
		case !rt.rule.Public && d.Recorder != nil:
			chain = append(chain, middleware.OperationLog(d.Recorder))
		}
		chain = append(chain, rt.handler)
		api.Handle(rt.method, rt.path, chain...)
	}

	return r
}

func (d RouterDeps) health(c *gin.Context) {
	body := gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)}
	if d.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		for k, v := range d.Health(ctx) {
			body[k] = v
			if v != "ok" {
				body["status"] = "degraded"
			}
		}
	}
	c.JSON(http.StatusOK, body)
}
