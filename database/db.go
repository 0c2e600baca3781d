package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rbac-admin/config"
	"rbac-admin/models"
)

// Open 按配置连接数据库并迁移表结构
func Open(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}
	if !cfg.IsRelease() {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DBDSN), gormCfg)
	default:
		db, err = OpenSQLite(cfg.DBPath, gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	l.Info("database initialized", zap.String("driver", cfg.DBDriver))
	return db, nil
}

// OpenSQLite 打开 SQLite 数据库，自动创建所在目录
func OpenSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	if gormCfg == nil {
		gormCfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	}
	// 唯一约束冲突统一为 gorm.ErrDuplicatedKey
	gormCfg.TranslateError = true

	// 外键约束与 WAL，WAL 模式下备份期间仍可读写
	dsn := path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	return gorm.Open(sqlite.Open(dsn), gormCfg)
}

// Migrate 自动迁移数据库结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.RolePermission{},
		&models.OperationLog{},
		&models.BackupHistory{},
	)
}
