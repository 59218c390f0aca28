package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pricescout/pricescout/internal/sources"
)

type Config struct {
	Server   ServerConfig
	Search   SearchConfig
	Cache    CacheConfig
	Breaker  BreakerConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type SearchConfig struct {
	Sources          []string
	GlobalDeadline   time.Duration
	DirectAPITimeout time.Duration
	RenderTimeout    time.Duration
	RenderSlots      int
	DefaultLocation  string
}

type CacheConfig struct {
	Backend       string
	FreshFor      time.Duration
	ExpireAfter   time.Duration
	PurgeInterval time.Duration
}

type BreakerConfig struct {
	FailureThreshold int
	BaseCooldown     time.Duration
	MaxCooldown      time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	SettleDelay    time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Search: SearchConfig{
			Sources:          getStringSliceOrDefault("SEARCH_SOURCES", sources.IDs()),
			GlobalDeadline:   getDurationOrDefault("SEARCH_GLOBAL_DEADLINE", 45*time.Second),
			DirectAPITimeout: getDurationOrDefault("SEARCH_DIRECT_API_TIMEOUT", 4*time.Second),
			RenderTimeout:    getDurationOrDefault("SEARCH_RENDER_TIMEOUT", 25*time.Second),
			RenderSlots:      getIntOrDefault("SEARCH_RENDER_SLOTS", 4),
			DefaultLocation:  getEnvOrDefault("SEARCH_DEFAULT_LOCATION", "560001"),
		},
		Cache: CacheConfig{
			Backend:       getEnvOrDefault("CACHE_BACKEND", "memory"),
			FreshFor:      getDurationOrDefault("CACHE_FRESH_FOR", 5*time.Minute),
			ExpireAfter:   getDurationOrDefault("CACHE_EXPIRE_AFTER", 30*time.Minute),
			PurgeInterval: getDurationOrDefault("CACHE_PURGE_INTERVAL", 10*time.Minute),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getIntOrDefault("BREAKER_FAILURE_THRESHOLD", 3),
			BaseCooldown:     getDurationOrDefault("BREAKER_BASE_COOLDOWN", 90*time.Second),
			MaxCooldown:      getDurationOrDefault("BREAKER_MAX_COOLDOWN", 15*time.Minute),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 390),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 844),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-IN,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Kolkata"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-IN"),
			SettleDelay:    getDurationOrDefault("BROWSER_SETTLE_DELAY", 2*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "pricescout"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Search.Sources) == 0 {
		return fmt.Errorf("SEARCH_SOURCES must name at least one source")
	}

	if c.Search.RenderSlots < 1 {
		return fmt.Errorf("SEARCH_RENDER_SLOTS must be at least 1")
	}

	if c.Search.DirectAPITimeout >= c.Search.GlobalDeadline {
		return fmt.Errorf("SEARCH_DIRECT_API_TIMEOUT must be below SEARCH_GLOBAL_DEADLINE")
	}

	if c.Cache.FreshFor >= c.Cache.ExpireAfter {
		return fmt.Errorf("CACHE_FRESH_FOR must be below CACHE_EXPIRE_AFTER")
	}

	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}

	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("CACHE_BACKEND must be memory or redis")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

const defaultUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
