package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the tariff news server
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Search    SearchConfig    `mapstructure:"search"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

func (l LogConfig) Normalize() LogConfig {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format == "" {
		l.Format = "json"
	}
	return l
}

func (l LogConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", l.Level)
	}
	switch l.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console (got %q)", l.Format)
	}
	return nil
}

// ServerConfig contains MCP transport settings
type ServerConfig struct {
	Transport string `mapstructure:"transport"` // stdio or sse
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"` // optional; guards the SSE endpoints when set
}

func (s ServerConfig) Normalize() ServerConfig {
	s.Transport = strings.ToLower(strings.TrimSpace(s.Transport))
	if s.Transport == "" {
		s.Transport = TransportStdio
	}
	if s.Port == 0 {
		s.Port = 8000
	}
	return s
}

func (s ServerConfig) Validate() error {
	if s.Transport != TransportStdio && s.Transport != TransportSSE {
		return fmt.Errorf("server.transport must be %q or %q (got %q)", TransportStdio, TransportSSE, s.Transport)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", s.Port)
	}
	return nil
}

// Address returns the listen address for the SSE transport.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("0.0.0.0:%d", s.Port)
}

const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// SearchConfig contains news backend client settings
type SearchConfig struct {
	Provider      string        `mapstructure:"provider"`
	BaseURL       string        `mapstructure:"base_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	Breaker       BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the backend.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Interval    time.Duration `mapstructure:"interval"`
}

func (s SearchConfig) Normalize() SearchConfig {
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	if s.Provider == "" {
		s.Provider = "duckduckgo"
	}
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if s.BaseURL == "" {
		s.BaseURL = "https://duckduckgo.com"
	}
	if strings.TrimSpace(s.UserAgent) == "" {
		s.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.RatePerSecond <= 0 {
		s.RatePerSecond = 1
	}
	if s.Burst <= 0 {
		s.Burst = 2
	}
	if s.Breaker.MaxFailures == 0 {
		s.Breaker.MaxFailures = 5
	}
	if s.Breaker.Timeout <= 0 {
		s.Breaker.Timeout = 30 * time.Second
	}
	if s.Breaker.Interval <= 0 {
		s.Breaker.Interval = time.Minute
	}
	return s
}

func (s SearchConfig) Validate() error {
	if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return fmt.Errorf("search.base_url must be an http(s) url (got %q)", s.BaseURL)
	}
	return nil
}

// TelemetryConfig contains tracing settings. Metrics are always collected.
type TelemetryConfig struct {
	Tracing  bool   `mapstructure:"tracing"`
	Exporter string `mapstructure:"exporter"` // stdout or noop
}

func (t TelemetryConfig) Validate() error {
	switch t.Exporter {
	case "", "noop", "stdout":
		return nil
	default:
		return fmt.Errorf("telemetry.exporter must be stdout or noop (got %q)", t.Exporter)
	}
}

// Load reads configuration from path, or searches the usual locations when
// path is empty. A missing config file is fine; defaults and TARIFFNEWS_*
// environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.transport", TransportStdio)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("search.provider", "duckduckgo")
	v.SetDefault("search.base_url", "https://duckduckgo.com")
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.rate_per_second", 1.0)
	v.SetDefault("search.burst", 2)
	v.SetDefault("telemetry.tracing", false)
	v.SetDefault("telemetry.exporter", "noop")

	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exe))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("TARIFFNEWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Log = cfg.Log.Normalize()
	cfg.Server = cfg.Server.Normalize()
	cfg.Search = cfg.Search.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}
