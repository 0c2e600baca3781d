package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Migration ClickHouse 迁移
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// 所有迁移定义
var migrations = []Migration{
	{
		Version:     1,
		Description: "创建操作日志表",
		SQL: `
    CREATE TABLE IF NOT EXISTS operation_log (
        created_at DateTime64(3) COMMENT '请求时间（毫秒精度）',
        date Date DEFAULT toDate(created_at) COMMENT '日期（用于分区）',
        user_id String COMMENT '用户ID',
        method LowCardinality(String) COMMENT '请求方法',
        path String COMMENT '请求路径',
        params String COMMENT '请求参数 JSON',
        response String COMMENT '响应 JSON',
        status_code UInt16 COMMENT 'HTTP 状态码',
        ip String COMMENT '客户端IP',
        user_agent String COMMENT 'User-Agent',
        duration_ms UInt32 COMMENT '耗时（毫秒）'
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(date)
    ORDER BY (date, user_id, created_at)
    TTL date + INTERVAL 180 DAY
    SETTINGS index_granularity = 8192
    COMMENT '操作日志表'
    `,
	},
	{
		Version:     2,
		Description: "添加路径索引",
		SQL:         `ALTER TABLE operation_log ADD INDEX IF NOT EXISTS idx_path path TYPE bloom_filter GRANULARITY 4`,
	},
}

// 创建迁移记录表
func createMigrationTable(ctx context.Context, conn driver.Conn) error {
	sql := `
    CREATE TABLE IF NOT EXISTS schema_migrations (
        version UInt32,
        description String,
        executed_at DateTime DEFAULT now()
    ) ENGINE = MergeTree()
    ORDER BY version
    `
	return conn.Exec(ctx, sql)
}

// 获取已执行的迁移版本
func getExecutedMigrations(ctx context.Context, conn driver.Conn) (map[int]bool, error) {
	executed := make(map[int]bool)

	rows, err := conn.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return executed, err
	}
	defer rows.Close()

	for rows.Next() {
		var version uint32
		if err := rows.Scan(&version); err != nil {
			continue
		}
		executed[int(version)] = true
	}

	return executed, rows.Err()
}

// pendingMigrations 返回未执行的迁移，按版本号排序
func pendingMigrations(all []Migration, executed map[int]bool) []Migration {
	sorted := make([]Migration, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	var pending []Migration
	for _, m := range sorted {
		if !executed[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// 执行迁移
func runMigrations(ctx context.Context, conn driver.Conn, l *zap.Logger) error {
	if err := createMigrationTable(ctx, conn); err != nil {
		return fmt.Errorf("创建迁移记录表失败: %w", err)
	}

	executed, err := getExecutedMigrations(ctx, conn)
	if err != nil {
		return fmt.Errorf("获取迁移记录失败: %w", err)
	}

	for _, migration := range pendingMigrations(migrations, executed) {
		l.Info("running clickhouse migration", zap.Int("version", migration.Version), zap.String("description", migration.Description))

		if err := executeMigration(ctx, conn, migration); err != nil {
			return fmt.Errorf("迁移 v%d 执行失败: %w", migration.Version, err)
		}

		// 记录迁移执行
		recordSQL := `INSERT INTO schema_migrations (version, description) VALUES (?, ?)`
		if err := conn.Exec(ctx, recordSQL, uint32(migration.Version), migration.Description); err != nil {
			return fmt.Errorf("记录迁移失败: %w", err)
		}
	}

	return nil
}

// 执行单个迁移
func executeMigration(ctx context.Context, conn driver.Conn, migration Migration) error {
	if migration.SQL == "" {
		return fmt.Errorf("迁移 v%d 没有定义 SQL", migration.Version)
	}
	return conn.Exec(ctx, migration.SQL)
}
