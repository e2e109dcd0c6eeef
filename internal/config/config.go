package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int
	RedisURL   string
	NATSUrl    string
	JWTSecret  string

	CacheTTL     time.Duration
	HeartbeatTTL time.Duration
	TypingTTL    time.Duration
	GrantTTL     time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "spark"),
		DBPassword: getEnv("DB_PASSWORD", "spark_dev_password"),
		DBName:     getEnv("DB_NAME", "spark"),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 10),
		RedisURL:   getEnv("REDIS_URL", "localhost:6379"),
		NATSUrl:    getEnv("NATS_URL", ""),
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),

		CacheTTL:     getEnvDuration("CACHE_TTL_SECONDS", 60),
		HeartbeatTTL: getEnvDuration("HEARTBEAT_TTL_SECONDS", 90),
		TypingTTL:    getEnvDuration("TYPING_TTL_SECONDS", 15),
		GrantTTL:     getEnvDuration("GRANT_TTL_SECONDS", 120),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallbackSeconds int) time.Duration {
	if val, exists := os.LookupEnv(key); exists {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(fallbackSeconds) * time.Second
}
