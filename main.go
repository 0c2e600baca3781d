package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbac-admin/config"
	"rbac-admin/database"
	"rbac-admin/handlers"
	"rbac-admin/logger"
	"rbac-admin/middleware"
	"rbac-admin/services"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置错误: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	l, closeLog, err := logger.New(logger.Options{
		Debug:   !cfg.IsRelease(),
		Level:   cfg.LogLevel,
		LogDir:  cfg.LogDir,
		MaxDays: cfg.LogMaxDays,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(cfg, l)
	if err != nil {
		l.Fatal("failed to open database", zap.Error(err))
	}

	hasher, err := services.NewPasswordHasher(cfg.HashAlgorithm, cfg.BcryptCost)
	if err != nil {
		l.Fatal("failed to create password hasher", zap.Error(err))
	}
	if err := database.Seed(db, hasher, cfg.SeedAdminPassword); err != nil {
		l.Fatal("failed to seed database", zap.Error(err))
	}

	tokens, err := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.JWTIssuer)
	if err != nil {
		l.Fatal("failed to create token issuer", zap.Error(err))
	}

	userStore := services.NewGormUserStore(db)
	roleStore := services.NewGormRoleStore(db)
	authService := services.NewAuthService(userStore, roleStore, hasher, tokens, cfg.DefaultRoleCode, l)
	userService := services.NewUserService(userStore, roleStore, hasher, l)

	// 操作日志存储
	recorder, chConn, closeRecorder := newOperationLogRecorder(ctx, cfg, db, l)
	defer closeRecorder()
	operationLogs := services.NewOperationLogService(recorder, l)

	// 登录限流
	limiter, rdb := newLoginLimiter(ctx, cfg, l)
	if rdb != nil {
		defer rdb.Close()
	}

	// 数据库备份
	backupService := newBackupService(ctx, cfg, db, l)
	if err := backupService.Start(); err != nil {
		l.Error("failed to start backup service", zap.Error(err))
	}
	defer backupService.Stop()

	router := handlers.Router(handlers.RouterDeps{
		Logger:       l,
		CORSOrigins:  cfg.CORSOrigins,
		Guard:        middleware.GuardDeps{Tokens: tokens, Identities: authService},
		Recorder:     operationLogs,
		LoginLimiter: limiter,
		Auth:         handlers.NewAuthHandler(authService),
		Users:        handlers.NewUserHandler(userService),
		Dashboard:    handlers.NewDashboardHandler(services.NewStatisticsService(db, operationLogs), operationLogs),
		Backups:      handlers.NewDatabaseBackupHandler(backupService),
		Health:       healthCheck(db, chConn, rdb),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		l.Info("server starting", zap.String("addr", srv.Addr), zap.String("mode", cfg.GinMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	l.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server shutdown failed", zap.Error(err))
	}
}

// newOperationLogRecorder ClickHouse 不可用时回退到主数据库
func newOperationLogRecorder(ctx context.Context, cfg *config.Config, db *gorm.DB, l *zap.Logger) (services.OperationLogRecorder, driver.Conn, func()) {
	if !cfg.ClickHouse.Enabled {
		return services.NewGormOperationLogSink(db), nil, func() {}
	}

	conn, err := database.OpenClickHouse(ctx, cfg.ClickHouse, l)
	if err != nil {
		l.Error("clickhouse unavailable, operation logs fall back to database", zap.Error(err))
		return services.NewGormOperationLogSink(db), nil, func() {}
	}

	sink := services.NewClickHouseOperationLogSink(conn, l)
	sink.Start()
	return sink, conn, func() {
		sink.Close()
		conn.Close()
	}
}

func newLoginLimiter(ctx context.Context, cfg *config.Config, l *zap.Logger) (middleware.Limiter, *redis.Client) {
	if cfg.RedisAddr == "" {
		return middleware.NewMemoryLimiter(cfg.LoginRateLimit), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		l.Warn("redis ping failed, limiter fails open until it recovers", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		l.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	}
	return middleware.NewRedisLimiter(rdb, cfg.LoginRateLimit), rdb
}

func newBackupService(ctx context.Context, cfg *config.Config, db *gorm.DB, l *zap.Logger) *services.DatabaseBackupService {
	var objects services.ObjectStore
	if cfg.Storage.IsS3Enabled() {
		s3Service, err := services.NewS3Service(ctx, services.S3Config{
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			Region:    cfg.Storage.S3Region,
			Bucket:    cfg.Storage.S3Bucket,
			Endpoint:  cfg.Storage.S3Endpoint,
		})
		if err != nil {
			l.Error("failed to create S3 client, backups stay local", zap.Error(err))
		} else {
			objects = s3Service
		}
	}
	return services.NewDatabaseBackupService(db, cfg.Storage, objects, l)
}

func healthCheck(db *gorm.DB, ch driver.Conn, rdb *redis.Client) func(ctx context.Context) map[string]string {
	return func(ctx context.Context) map[string]string {
		result := map[string]string{}

		status := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = "unavailable"
		}
		result["database"] = status

		if ch != nil {
			result["clickhouse"] = "ok"
			if err := database.CheckClickHouseHealth(ctx, ch); err != nil {
				result["clickhouse"] = "unavailable"
			}
		}
		if rdb != nil {
			result["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				result["redis"] = "unavailable"
			}
		}
		return result
	}
}
