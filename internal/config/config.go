package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Images     ImagesConfig     `mapstructure:"images"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type GeminiConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	BotServer string `mapstructure:"bot_server"`
	// Language is sent as the hl query parameter when set.
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// Latency is the pause between polling attempts.
	Latency time.Duration `mapstructure:"latency"`
	// WaitTime bounds how long PostWithRetry polls for a 200.
	WaitTime time.Duration `mapstructure:"wait_time"`

	Cookies     string `mapstructure:"cookies"`
	CookiesFile string `mapstructure:"cookies_file"`

	CandidatePolicy string `mapstructure:"candidate_policy"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
}

type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	SiteURL string `mapstructure:"site_url"`
	AppName string `mapstructure:"app_name"`
}

// Enabled reports whether a fallback provider should be built.
func (c OpenRouterConfig) Enabled() bool {
	return c.APIKey != ""
}

type ImagesConfig struct {
	Dir         string `mapstructure:"dir"`
	Concurrency int    `mapstructure:"concurrency"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")

	v.SetDefault("gemini.base_url", "https://gemini.google.com")
	v.SetDefault("gemini.bot_server", "boq_assistant-bard-web-server_20240222.09_p2")
	v.SetDefault("gemini.language", "")
	v.SetDefault("gemini.timeout", "30s")
	v.SetDefault("gemini.latency", "10s")
	v.SetDefault("gemini.wait_time", "40s")
	v.SetDefault("gemini.cookies", "")
	v.SetDefault("gemini.cookies_file", "")
	v.SetDefault("gemini.candidate_policy", "abort")
	v.SetDefault("gemini.max_attempts", 1)

	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "google/gemma-7b-it:free")
	v.SetDefault("openrouter.site_url", "")
	v.SetDefault("openrouter.app_name", "gemini-mole")

	v.SetDefault("images.dir", "images")
	v.SetDefault("images.concurrency", 4)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "gemini-mole")
}

// LoadConfig reads defaults, an optional config file and the environment.
// Keys map to environment variables by upper-casing and replacing dots with
// underscores, e.g. gemini.cookies_file is GEMINI_COOKIES_FILE.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("configuration loaded successfully", "file", v.ConfigFileUsed())
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Gemini.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("gemini.max_attempts must be at least 1, got %d", c.Gemini.MaxAttempts))
	}
	switch c.Gemini.CandidatePolicy {
	case "abort", "skip":
	default:
		errs = append(errs, fmt.Errorf("gemini.candidate_policy must be abort or skip, got %q", c.Gemini.CandidatePolicy))
	}
	if c.Gemini.WaitTime < 0 || c.Gemini.Latency < 0 {
		errs = append(errs, errors.New("gemini.wait_time and gemini.latency must not be negative"))
	}
	if c.Images.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("images.concurrency must be at least 1, got %d", c.Images.Concurrency))
	}
	return errors.Join(errs...)
}
