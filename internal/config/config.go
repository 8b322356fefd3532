package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds application configuration from environment.
type Config struct {
	HTTPPort        string
	DatabaseURL     string
	DBPoolSize      int
	RedisURL        string
	RedisPoolSize   int
	CacheTTL        int // seconds
	KafkaBrokers    []string
	CommandTopic    string
	NotifyTopic     string
	KafkaPartitions int
	ScanInterval    int // seconds between notification scans
	JWTSecret       string
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the application config (loads once from env).
func Get() *Config {
	cfgOnce.Do(func() {
		cfg = &Config{
			HTTPPort:        getEnv("HTTP_PORT", "8080"),
			DatabaseURL:     os.Getenv("DATABASE_URL"),
			DBPoolSize:      getIntEnv("DB_POOL_SIZE", 50),
			RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisPoolSize:   getIntEnv("REDIS_POOL_SIZE", 100),
			CacheTTL:        getIntEnv("CACHE_TTL_SEC", 300),
			KafkaBrokers:    getSliceEnv("KAFKA_BROKERS", "localhost:9092"),
			CommandTopic:    getEnv("KAFKA_COMMAND_TOPIC", "reminder-commands"),
			NotifyTopic:     getEnv("KAFKA_NOTIFY_TOPIC", "reminder-notifications"),
			KafkaPartitions: getIntEnv("KAFKA_PARTITIONS", 8),
			ScanInterval:    getIntEnv("SCAN_INTERVAL_SEC", 60),
			JWTSecret:       os.Getenv("JWT_SECRET"),
		}
	})
	return cfg
}

// GetJWTSecret returns JWT secret from config (for middleware that only has context).
func GetJWTSecret(ctx context.Context) string {
	return Get().JWTSecret
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getSliceEnv(key, defaultVal string) []string {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{defaultVal}
}
