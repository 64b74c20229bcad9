// Package config layers defaults, an optional YAML file and REPLAY_*
// environment variables into the runtime configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"browser-replay/internal/infrastructure/browser/rod"
	"browser-replay/internal/infrastructure/browser/semantic"
	"browser-replay/internal/infrastructure/logger"
	"browser-replay/internal/usecase/executor"
	"browser-replay/internal/usecase/session"

	"github.com/spf13/viper"
)

const EnvPrefix = "REPLAY"

const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

type StorageConfig struct {
	// Driver selects the backend: json (one file per document under Dir)
	// or sqlite (DSN, defaulting to Dir/replay.db).
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
	DSN    string `mapstructure:"dsn"`
}

// LLMConfig configures the optional semantic extraction fallback. It is
// disabled while APIKey is empty.
type LLMConfig struct {
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Semantic semantic.Config `mapstructure:"semantic"`
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

type Config struct {
	Logger   logger.Config     `mapstructure:"logger"`
	Browser  rod.BrowserConfig `mapstructure:"browser"`
	Executor executor.Config   `mapstructure:"executor"`
	Session  session.Config    `mapstructure:"session"`
	Storage  StorageConfig     `mapstructure:"storage"`
	LLM      LLMConfig         `mapstructure:"llm"`
}

// SetDefaults registers every key so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	lc := logger.DefaultConfig()
	v.SetDefault("logger.level", lc.Level)
	v.SetDefault("logger.format", lc.Format)
	v.SetDefault("logger.dir", lc.Dir)
	v.SetDefault("logger.max_size_mb", lc.MaxSizeMB)
	v.SetDefault("logger.max_backups", lc.MaxBackups)
	v.SetDefault("logger.max_age_days", lc.MaxAgeDays)
	v.SetDefault("logger.compress", lc.Compress)

	bc := rod.DefaultConfig()
	v.SetDefault("browser.headless", bc.Headless)
	v.SetDefault("browser.slow_motion", bc.SlowMotion)
	v.SetDefault("browser.timeout", bc.Timeout)
	v.SetDefault("browser.no_sandbox", bc.NoSandbox)
	v.SetDefault("browser.devtools", bc.DevTools)
	v.SetDefault("browser.browser_bin", bc.BrowserBin)
	v.SetDefault("browser.max_elements", bc.MaxElements)
	v.SetDefault("browser.screenshot_width", bc.ScreenshotWidth)
	v.SetDefault("browser.screenshot_quality", bc.ScreenshotQuality)
	v.SetDefault("browser.max_text_chars", bc.MaxTextChars)

	ec := executor.DefaultConfig()
	v.SetDefault("executor.save_screenshots", ec.SaveScreenshots)
	v.SetDefault("executor.screenshot_on_error", ec.ScreenshotOnError)
	v.SetDefault("executor.retry_on_error", ec.RetryOnError)
	v.SetDefault("executor.retry_delay", ec.RetryDelay)
	v.SetDefault("executor.timeout", ec.Timeout)
	v.SetDefault("executor.strict_params", ec.StrictParams)
	v.SetDefault("executor.prefer_semantic", ec.PreferSemantic)
	v.SetDefault("executor.settle.navigate", ec.Settle.Navigate)
	v.SetDefault("executor.settle.click", ec.Settle.Click)
	v.SetDefault("executor.settle.input", ec.Settle.Input)
	v.SetDefault("executor.settle.scroll", ec.Settle.Scroll)

	v.SetDefault("session.input_timeout", session.DefaultConfig().InputTimeout)

	v.SetDefault("storage.driver", StorageJSON)
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.dsn", "")

	sc := semantic.DefaultConfig()
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "openai/gpt-4o-mini")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.semantic.max_page_chars", sc.MaxPageChars)
	v.SetDefault("llm.semantic.max_tokens", sc.MaxTokens)
}

// New returns a viper instance with defaults and environment binding. When
// file is empty, ./config.yaml is read if present.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("llm.model", EnvPrefix+"_LLM_MODEL", "OPENROUTER_MODEL_NAME")
	return v
}

// Load reads the configuration file (optional unless file is set
// explicitly) and returns the validated result.
func Load(file string) (*Config, error) {
	v := New(file)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageJSON, StorageSQLite:
	default:
		return fmt.Errorf("storage.driver %q is not one of %s, %s", c.Storage.Driver, StorageJSON, StorageSQLite)
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		return errors.New("storage.dir must not be empty")
	}
	if c.Executor.Timeout <= 0 {
		return errors.New("executor.timeout must be positive")
	}
	if c.Executor.RetryDelay < 0 {
		return errors.New("executor.retry_delay must not be negative")
	}
	if c.Session.InputTimeout <= 0 {
		return errors.New("session.input_timeout must be positive")
	}
	if c.Browser.Timeout < 0 {
		return errors.New("browser.timeout must not be negative")
	}
	if c.LLM.Enabled() && c.LLM.Model == "" {
		return errors.New("llm.model is required when an API key is set")
	}
	return nil
}
