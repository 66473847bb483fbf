package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Publish   PublishConfig   `yaml:"publish"`
	Retention RetentionConfig `yaml:"retention"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	StaticDir    string        `yaml:"static_dir"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ViewerConfig drives the poller that feeds the live board and the watch
// command.
type ViewerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Endpoint     string        `yaml:"endpoint"`
	Interval     time.Duration `yaml:"interval"`
	FadeDuration time.Duration `yaml:"fade_duration"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Order        string        `yaml:"order"`
}

type PublishConfig struct {
	CompletedCount int `yaml:"completed_count"`
	TitleLength    int `yaml:"title_length"`
}

// RetentionConfig controls the pruning of finished jobs. Days of zero keeps
// jobs forever.
type RetentionConfig struct {
	Days     int           `yaml:"days"`
	Interval time.Duration `yaml:"interval"`
}

type AuthConfig struct {
	AdminPasswordHash string        `yaml:"admin_password_hash"`
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenDuration     time.Duration `yaml:"token_duration"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/queueview.db",
		},
		Viewer: ViewerConfig{
			Enabled:      false,
			Interval:     5001 * time.Millisecond,
			FadeDuration: 1000 * time.Millisecond,
			FetchTimeout: 30 * time.Second,
			Order:        "ascending",
		},
		Publish: PublishConfig{
			CompletedCount: 10,
			TitleLength:    14,
		},
		Retention: RetentionConfig{
			Days:     30,
			Interval: 24 * time.Hour,
		},
		Auth: AuthConfig{
			TokenDuration: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaults()
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with QUEUEVIEW_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("QUEUEVIEW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("QUEUEVIEW_DB_PATH"); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv("QUEUEVIEW_ENDPOINT"); v != "" {
		c.Viewer.Endpoint = v
		c.Viewer.Enabled = true
	}

	if v := os.Getenv("QUEUEVIEW_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Viewer.Interval = d
		}
	}

	if v := os.Getenv("QUEUEVIEW_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Retention.Days = days
		}
	}

	if v := os.Getenv("QUEUEVIEW_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}

	if v := os.Getenv("QUEUEVIEW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("QUEUEVIEW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Viewer.Enabled && c.Viewer.Endpoint == "" {
		return fmt.Errorf("viewer endpoint is required when the viewer is enabled")
	}

	if c.Viewer.Interval <= 0 {
		return fmt.Errorf("viewer interval must be positive")
	}

	if c.Viewer.FadeDuration < 0 {
		return fmt.Errorf("viewer fade duration must be non-negative")
	}

	if c.Viewer.FetchTimeout < 0 {
		return fmt.Errorf("viewer fetch timeout must be non-negative")
	}

	validOrders := map[string]bool{
		"ascending":    true,
		"newest_first": true,
	}

	if !validOrders[c.Viewer.Order] {
		return fmt.Errorf("invalid viewer order: %s (valid: ascending, newest_first)", c.Viewer.Order)
	}

	if c.Publish.CompletedCount < 0 {
		return fmt.Errorf("completed count must be non-negative")
	}

	if c.Publish.TitleLength < 1 {
		return fmt.Errorf("title length must be at least 1")
	}

	if c.Retention.Days < 0 {
		return fmt.Errorf("retention days must be non-negative")
	}

	if c.Retention.Days > 0 && c.Retention.Interval <= 0 {
		return fmt.Errorf("retention interval must be positive")
	}

	if c.Auth.TokenDuration <= 0 {
		return fmt.Errorf("token duration must be positive")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json":  true,
		"text":  true,
		"plain": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text, plain)", c.Logging.Format)
	}

	return nil
}
