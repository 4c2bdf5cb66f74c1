package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort   int
	BackendURL string
	DataDir    string
	LogLevel   string
	PollFast   time.Duration
	PollSlow   time.Duration
}

// fileConfig is the YAML shape. Durations are strings ("10s") so the file
// reads the same way the environment variables do.
type fileConfig struct {
	HTTPPort   *int    `yaml:"http_port"`
	BackendURL *string `yaml:"backend_url"`
	DataDir    *string `yaml:"data_dir"`
	LogLevel   *string `yaml:"log_level"`
	PollFast   *string `yaml:"poll_fast"`
	PollSlow   *string `yaml:"poll_slow"`
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		HTTPPort:   getEnvInt("IMPORTD_HTTP_PORT", 8600),
		BackendURL: getEnv("IMPORTD_BACKEND_URL", "http://localhost:5000"),
		DataDir:    getEnv("IMPORTD_DATA_DIR", "data"),
		LogLevel:   getEnv("IMPORTD_LOG_LEVEL", "info"),
		PollFast:   getEnvDuration("IMPORTD_POLL_FAST", time.Second),
		PollSlow:   getEnvDuration("IMPORTD_POLL_SLOW", 10*time.Second),
	}
}

// LoadFile layers a YAML config file over the environment defaults. Fields
// absent from the file keep their Load() values.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if fc.HTTPPort != nil {
		cfg.HTTPPort = *fc.HTTPPort
	}
	if fc.BackendURL != nil {
		cfg.BackendURL = *fc.BackendURL
	}
	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.PollFast != nil {
		d, err := time.ParseDuration(*fc.PollFast)
		if err != nil {
			return nil, fmt.Errorf("parse poll_fast: %w", err)
		}
		cfg.PollFast = d
	}
	if fc.PollSlow != nil {
		d, err := time.ParseDuration(*fc.PollSlow)
		if err != nil {
			return nil, fmt.Errorf("parse poll_slow: %w", err)
		}
		cfg.PollSlow = d
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
