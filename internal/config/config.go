package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	SubmissionKeyTimestamp = "submitted_at"
	SubmissionKeySession   = "session_id"

	defaultTextResponseLimit = 50
	maxTextResponseLimit     = 500
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	DBPath                string
	DBDriver              string
	DBAutoMigrate         bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	CacheTTL              time.Duration
	GRPCPort              int
	GRPCReflectionEnabled bool
	HTTPPort              int
	Timezone              string
	TextResponseLimit     int
	SubmissionKey         string
}

type configFile struct {
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`
	Database struct {
		Driver      string `yaml:"driver"`
		Path        string `yaml:"path"`
		AutoMigrate *bool  `yaml:"auto_migrate"`
	} `yaml:"database"`
	Redis struct {
		Addr     *string `yaml:"addr"`
		Password string  `yaml:"password"`
		DB       int     `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`
	Server struct {
		GRPCPort   int   `yaml:"grpc_port"`
		HTTPPort   int   `yaml:"http_port"`
		Reflection *bool `yaml:"reflection"`
	} `yaml:"server"`
	Pulse struct {
		Timezone          string `yaml:"timezone"`
		TextResponseLimit int    `yaml:"text_response_limit"`
		SubmissionKey     string `yaml:"submission_key"`
	} `yaml:"pulse"`
}

func defaults() *Config {
	return &Config{
		AppEnv:            "development",
		DBPath:            "./data/database.db",
		DBDriver:          "sqlite3",
		RedisAddr:         "localhost:6379",
		CacheTTL:          10 * time.Minute,
		GRPCPort:          50051,
		HTTPPort:          8080,
		Timezone:          "Asia/Seoul",
		TextResponseLimit: defaultTextResponseLimit,
		SubmissionKey:     SubmissionKeyTimestamp,
	}
}

// LoadFromEnv loads configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := defaults()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBAutoMigrate = getEnvBool("DB_AUTO_MIGRATE", cfg.DBAutoMigrate)
	// An explicitly empty REDIS_ADDR disables caching.
	if addr, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.RedisAddr = strings.TrimSpace(addr)
	}
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.GRPCPort = getEnvInt("GRPC_PORT", cfg.GRPCPort)
	cfg.GRPCReflectionEnabled = getEnvBool("GRPC_REFLECTION_ENABLED", cfg.GRPCReflectionEnabled)
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.Timezone = getEnv("PULSE_TIMEZONE", cfg.Timezone)
	cfg.TextResponseLimit = getEnvInt("TEXT_RESPONSE_LIMIT", cfg.TextResponseLimit)
	cfg.SubmissionKey = getEnv("SUBMISSION_KEY", cfg.SubmissionKey)

	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.App.Env != "" {
		c.AppEnv = f.App.Env
	}
	if f.Database.Driver != "" {
		c.DBDriver = f.Database.Driver
	}
	if f.Database.Path != "" {
		c.DBPath = f.Database.Path
	}
	if f.Database.AutoMigrate != nil {
		c.DBAutoMigrate = *f.Database.AutoMigrate
	}
	if f.Redis.Addr != nil {
		c.RedisAddr = strings.TrimSpace(*f.Redis.Addr)
	}
	if f.Redis.Password != "" {
		c.RedisPassword = f.Redis.Password
	}
	if f.Redis.DB > 0 {
		c.RedisDB = f.Redis.DB
	}
	if f.Cache.TTL != "" {
		ttl, err := time.ParseDuration(f.Cache.TTL)
		if err != nil {
			return fmt.Errorf("parse cache.ttl: %w", err)
		}
		c.CacheTTL = ttl
	}
	if f.Server.GRPCPort > 0 {
		c.GRPCPort = f.Server.GRPCPort
	}
	if f.Server.HTTPPort > 0 {
		c.HTTPPort = f.Server.HTTPPort
	}
	if f.Server.Reflection != nil {
		c.GRPCReflectionEnabled = *f.Server.Reflection
	}
	if f.Pulse.Timezone != "" {
		c.Timezone = f.Pulse.Timezone
	}
	if f.Pulse.TextResponseLimit > 0 {
		c.TextResponseLimit = f.Pulse.TextResponseLimit
	}
	if f.Pulse.SubmissionKey != "" {
		c.SubmissionKey = f.Pulse.SubmissionKey
	}
	return nil
}

func (c *Config) normalize() {
	c.TextResponseLimit = clamp(c.TextResponseLimit, 1, maxTextResponseLimit)
	if c.CacheTTL <= 0 {
		c.CacheTTL = 10 * time.Minute
	}
	switch strings.ToLower(c.SubmissionKey) {
	case SubmissionKeySession:
		c.SubmissionKey = SubmissionKeySession
	default:
		c.SubmissionKey = SubmissionKeyTimestamp
	}
}

// Location resolves Timezone. Hosts without zoneinfo fall back to a fixed +09:00 zone.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
