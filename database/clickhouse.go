package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"rbac-admin/config"
)

// OpenClickHouse 连接 ClickHouse，创建数据库并执行迁移
func OpenClickHouse(ctx context.Context, cfg *config.ClickHouseConfig, l *zap.Logger) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	l.Info("connecting to clickhouse", zap.String("addr", addr))

	// 第一步：不指定数据库连接，确保数据库存在
	bootstrap, err := clickhouse.Open(clickHouseOptions(cfg, ""))
	if err != nil {
		return nil, fmt.Errorf("连接 ClickHouse 失败: %w", err)
	}
	if err := bootstrap.Ping(ctx); err != nil {
		bootstrap.Close()
		return nil, fmt.Errorf("Ping ClickHouse 失败: %w", err)
	}
	if err := bootstrap.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database)); err != nil {
		bootstrap.Close()
		return nil, fmt.Errorf("创建数据库失败: %w", err)
	}
	bootstrap.Close()

	conn, err := clickhouse.Open(clickHouseOptions(cfg, cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := runMigrations(ctx, conn, l); err != nil {
		conn.Close()
		return nil, err
	}

	l.Info("clickhouse initialized", zap.String("database", cfg.Database))
	return conn, nil
}

func clickHouseOptions(cfg *config.ClickHouseConfig, database string) *clickhouse.Options {
	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// CheckClickHouseHealth 健康检查，超时不超过 5 秒
func CheckClickHouseHealth(ctx context.Context, conn driver.Conn) error {
	if conn == nil {
		return fmt.Errorf("ClickHouse 连接未初始化")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("ClickHouse 健康检查失败: %w", err)
	}

	return nil
}
