package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	ServerPort string
	GinMode    string

	JWTSecret    string
	JWTExpiresIn time.Duration
	JWTIssuer    string

	DBDriver string // sqlite 或 postgres
	DBPath   string
	DBDSN    string

	HashAlgorithm     string // bcrypt 或 argon2id
	BcryptCost        int
	DefaultRoleCode   string
	SeedAdminPassword string

	CORSOrigins    []string
	LoginRateLimit int // 每分钟每个 IP 的登录次数
	RedisAddr      string
	RedisPassword  string

	LogLevel   string
	LogDir     string
	LogMaxDays int

	ClickHouse *ClickHouseConfig
	Storage    *StorageConfig
}

// Load 加载配置，.env 文件不存在时仅使用环境变量
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "3000"),
		GinMode:    getEnv("GIN_MODE", "debug"),

		JWTSecret:    getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiresIn: getEnvAsDuration("JWT_EXPIRES_IN", 24*time.Hour),
		JWTIssuer:    getEnv("JWT_ISSUER", "rbac-admin"),

		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		// 使用绝对路径，方便 Docker 挂载
		DBPath: getEnv("DB_PATH", "/app/data/rbac.db"),
		DBDSN:  os.Getenv("DB_DSN"),

		HashAlgorithm:     strings.ToLower(getEnv("HASH_ALGORITHM", "bcrypt")),
		BcryptCost:        getEnvAsInt("BCRYPT_COST", 10),
		DefaultRoleCode:   getEnv("DEFAULT_ROLE_CODE", "user"),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", "admin123"),

		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		LoginRateLimit: getEnvAsInt("LOGIN_RATE_LIMIT", 10),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),

		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogDir:     getEnv("LOG_DIR", "/app/data/logs"),
		LogMaxDays: getEnvAsInt("LOG_MAX_DAYS", 7),

		ClickHouse: GetClickHouseConfig(),
		Storage:    LoadStorageConfig(),
	}

	log.Printf("Config loaded - ServerPort: %s, DBDriver: %s, DBPath: %s", cfg.ServerPort, cfg.DBDriver, cfg.DBPath)
	return cfg
}

// IsRelease 是否为生产模式
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET 未设置")
	}
	if c.IsRelease() && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("生产模式下必须修改 JWT_SECRET")
	}
	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN 必须大于 0")
	}

	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH 未设置")
		}
	case "postgres":
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN 未设置")
		}
	default:
		return fmt.Errorf("不支持的 DB_DRIVER: %s", c.DBDriver)
	}

	switch c.HashAlgorithm {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("不支持的 HASH_ALGORITHM: %s", c.HashAlgorithm)
	}

	if c.LoginRateLimit <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT 必须大于 0")
	}

	if c.Storage != nil {
		if err := c.Storage.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s: %s, using default %s", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
