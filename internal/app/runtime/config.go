// Package runtime loads process configuration. Values come from an optional
// YAML file first and environment variables second, so deployments can keep a
// checked-in base file and override per environment.
package runtime

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything the node needs to start.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Audit    AuditConfig    `yaml:"audit"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metadata MetadataConfig `yaml:"metadata"`
	Stats    StatsConfig    `yaml:"stats"`
	Limits   LimitsConfig   `yaml:"limits"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// AllowedOrigins feeds the CORS middleware; empty keeps the localhost
	// dev defaults.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver selects the store: "memory" or "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	// URL enables event publishing when set, e.g. redis://localhost:6379/0.
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

type AuthConfig struct {
	// Tokens lists accepted bearer tokens; empty serves unauthenticated.
	Tokens []string `yaml:"tokens"`
}

type AuditConfig struct {
	Path string `yaml:"path"`
	Max  int    `yaml:"max"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetadataConfig struct {
	Gateway string `yaml:"gateway"`
}

type StatsConfig struct {
	Schedule string `yaml:"schedule"`
}

type LimitsConfig struct {
	WriteRPS   float64 `yaml:"write_rps"`
	WriteBurst int     `yaml:"write_burst"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Server:   ServerConfig{ListenAddr: ":8080"},
		Database: DatabaseConfig{Driver: "memory"},
		Redis:    RedisConfig{Channel: "social_layer.events"},
		Audit:    AuditConfig{Max: 200},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Metadata: MetadataConfig{Gateway: ""},
		Stats:    StatsConfig{Schedule: ""},
	}
}

// LoadConfig builds the configuration from the file named by CONFIG_FILE (if
// any) and the environment.
func LoadConfig() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Database.Driver == "postgres" && cfg.Database.DSN == "" {
		return Config{}, fmt.Errorf("postgres driver requires a dsn")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Redis.Channel, "REDIS_CHANNEL")
	setString(&cfg.Audit.Path, "AUDIT_LOG_PATH")
	setInt(&cfg.Audit.Max, "AUDIT_LOG_MAX")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Metadata.Gateway, "METADATA_GATEWAY")
	setString(&cfg.Stats.Schedule, "STATS_SCHEDULE")
	setFloat(&cfg.Limits.WriteRPS, "WRITE_RPS")
	setInt(&cfg.Limits.WriteBurst, "WRITE_BURST")

	if list := splitEnvList("AUTH_TOKENS"); list != nil {
		cfg.Auth.Tokens = list
	}
	if list := splitEnvList("CORS_ALLOWED_ORIGINS"); list != nil {
		cfg.Server.AllowedOrigins = list
	}
}

func splitEnvList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}
