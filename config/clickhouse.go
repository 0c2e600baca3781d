package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// ClickHouseConfig 操作日志的 ClickHouse 存储配置
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

func GetClickHouseConfig() *ClickHouseConfig {
	logStorageType := strings.ToLower(getEnv("LOG_STORAGE_TYPE", "database"))
	return &ClickHouseConfig{
		Enabled:  logStorageType == "clickhouse",
		Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
		Port:     getEnvAsInt("CLICKHOUSE_PORT", 9000),
		Database: getEnv("CLICKHOUSE_DB", "rbac_logs"),
		Username: getEnv("CLICKHOUSE_USER", "default"),
		Password: getEnv("CLICKHOUSE_PASSWORD", ""),
	}
}

// getEnvAsInt 获取环境变量并转换为整数
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s: %s, using default %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}
