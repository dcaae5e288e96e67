// Package config loads the application configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Supabase   SupabaseConfig   `yaml:"supabase"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Audit      AuditConfig      `yaml:"audit"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	RateLimitPerSecond int      `yaml:"rate_limit_per_second"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
}

// StorageConfig selects the persistence backend: "supabase", "postgres" or
// "memory".
type StorageConfig struct {
	Backend string `yaml:"backend"`
}

type SupabaseConfig struct {
	URL       string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	JWTSecret string `yaml:"jwt_secret"`
	Realtime  bool   `yaml:"realtime"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type AttendanceConfig struct {
	StatePath string `yaml:"state_path"`
}

type AuditConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:               ":8080",
			AllowedOrigins:     []string{"*"},
			RateLimitPerSecond: 50,
			RateLimitBurst:     100,
		},
		Storage:    StorageConfig{Backend: "supabase"},
		Supabase:   SupabaseConfig{Realtime: true},
		Attendance: AttendanceConfig{StatePath: "data/attendance.json"},
		Audit:      AuditConfig{Path: ""},
		Log:        LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. An empty path skips the file step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "POS_ADDR")
	if v := os.Getenv("POS_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	setInt(&c.Server.RateLimitPerSecond, "POS_RATE_LIMIT")
	setInt(&c.Server.RateLimitBurst, "POS_RATE_BURST")

	setString(&c.Storage.Backend, "POS_STORAGE")
	setString(&c.Supabase.URL, "SUPABASE_URL")
	setString(&c.Supabase.APIKey, "SUPABASE_ANON_KEY")
	setString(&c.Supabase.JWTSecret, "SUPABASE_JWT_SECRET")
	if v := os.Getenv("SUPABASE_REALTIME"); v != "" {
		c.Supabase.Realtime, _ = strconv.ParseBool(v)
	}
	setString(&c.Postgres.DSN, "DATABASE_URL")
	setString(&c.Attendance.StatePath, "POS_ATTENDANCE_STATE")
	setString(&c.Audit.Path, "POS_AUDIT_LOG")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.APIKey == "" {
			return fmt.Errorf("supabase backend requires SUPABASE_URL and SUPABASE_ANON_KEY")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres backend requires DATABASE_URL")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
