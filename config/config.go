package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	SignalAddr     string
	Port           string
	Environment    string
	AllowedOrigins []string
	JWTSecret      string
	Admin          AdminConfig
	Redis          RedisConfig
	MaxFrameBytes  int
	SendQueue      int
	LogLevel       string
	LogFormat      string

	// Warnings collects settings that were invalid and replaced by their
	// defaults. The logger does not exist yet when Load runs.
	Warnings []string
}

type AdminConfig struct {
	User     string
	Password string
}

// Enabled reports whether admin login is possible.
func (a AdminConfig) Enabled() bool {
	return a.Password != ""
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether the presence mirror should connect.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func Load() *Config {
	cfg := &Config{
		SignalAddr:  getEnv("SIGNAL_ADDR", ":9988"),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),
		Admin: AdminConfig{
			User:     getEnv("ADMIN_USER", "admin"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// Parse allowed origins (comma-separated)
	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	for _, o := range strings.Split(originsStr, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	cfg.Redis.DB = cfg.getInt("REDIS_DB", 0)
	cfg.MaxFrameBytes = cfg.getInt("MAX_FRAME_BYTES", 64*1024)
	cfg.SendQueue = cfg.getInt("SEND_QUEUE", 256)

	defaultFormat := "console"
	if cfg.IsProduction() {
		defaultFormat = "json"
	}
	cfg.LogFormat = getEnv("LOG_FORMAT", defaultFormat)

	return cfg
}

// IsProduction reports whether ENVIRONMENT is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HTTPAddr is the listen address of the HTTP server.
func (c *Config) HTTPAddr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a non-negative integer, using %d", key, value, defaultValue))
		return defaultValue
	}
	return n
}
