package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/liliang-cn/policychat/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all configuration for PolicyChat
type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Backend   BackendConfig       `mapstructure:"backend"`
	Widget    domain.WidgetConfig `mapstructure:"widget"`
	RateLimit RateLimitConfig     `mapstructure:"rate_limit"`
	CORS      CORSConfig          `mapstructure:"cors"`
	Log       LogConfig           `mapstructure:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BackendConfig holds question-answering backend configuration
type BackendConfig struct {
	URL     string            `mapstructure:"url"`
	Timeout time.Duration     `mapstructure:"timeout"` // 0 disables the client-side timeout
	Headers map[string]string `mapstructure:"headers"`
}

// RateLimitConfig holds submit rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// CORSConfig holds allowed origins for browser renderers
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// POLICYCHAT_BACKEND_URL overrides backend.url
	v.SetEnvPrefix("POLICYCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("backend.url", "http://localhost:3000/api/chat")
	v.SetDefault("backend.timeout", 0)
	v.SetDefault("backend.headers", map[string]string{})

	w := domain.DefaultWidgetConfig()
	v.SetDefault("widget.title", w.Title)
	v.SetDefault("widget.welcome_message", w.WelcomeMessage)
	v.SetDefault("widget.placeholder", w.Placeholder)
	v.SetDefault("widget.waiting_placeholder", w.WaitingPlaceholder)
	v.SetDefault("widget.show_sources", w.ShowSources)
	v.SetDefault("widget.max_input_runes", w.MaxInputRunes)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 20)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("cors.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
}

// Validate checks that required configuration fields are usable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("backend.url cannot be empty")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must be >= 0")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Widget.MaxInputRunes < 0 {
		return fmt.Errorf("widget.max_input_runes must be >= 0")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be > 0 when enabled")
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must be >= 0")
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
