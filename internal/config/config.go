// Package config provides configuration loading, validation, and defaults.
// Values come from config.yaml in the working directory, overridden by
// BOT_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all components.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	VK        VKConfig        `mapstructure:"vk"`
	Intent    IntentConfig    `mapstructure:"intent"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Search    SearchConfig    `mapstructure:"search"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Bot       BotConfig       `mapstructure:"bot"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// VKConfig holds the chat transport credentials and polling settings.
type VKConfig struct {
	Token          string        `mapstructure:"token"           validate:"required"`
	APIVersion     string        `mapstructure:"api_version"     validate:"required"`
	PollWait       int           `mapstructure:"poll_wait"       validate:"min=1,max=90"`
	PollMode       int           `mapstructure:"poll_mode"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s,max=5m"`
}

// IntentConfig selects and configures the NLU provider.
type IntentConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=apiai gemini"`
	Timeout  time.Duration `mapstructure:"timeout"  validate:"min=1s,max=5m"`

	APIAIToken   string `mapstructure:"apiai_token"`
	APIAIBaseURL string `mapstructure:"apiai_base_url"`
	APIAILang    string `mapstructure:"apiai_lang"`

	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	GeminiModel       string        `mapstructure:"gemini_model"`
	GeminiTemperature float32       `mapstructure:"gemini_temperature" validate:"min=0,max=2"`
	GeminiMaxRetries  int           `mapstructure:"gemini_max_retries" validate:"min=0,max=10"`
	GeminiRetryDelay  time.Duration `mapstructure:"gemini_retry_delay"`
}

// GeocoderConfig holds the Nominatim endpoint settings.
type GeocoderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"min=1s,max=1m"`
}

// SearchConfig holds the event index connection settings.
type SearchConfig struct {
	Addresses []string      `mapstructure:"addresses" validate:"required,min=1,dive,url"`
	Index     string        `mapstructure:"index"     validate:"required"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Timeout   time.Duration `mapstructure:"timeout"   validate:"min=1s,max=1m"`
}

// DatabaseConfig holds the message log database settings.
type DatabaseConfig struct {
	Path      string        `mapstructure:"path" validate:"required"`
	Retention time.Duration `mapstructure:"retention"`
}

// SchedulerConfig is the table of scheduled tasks.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables one scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// BotConfig holds the pipeline knobs and reply templates.
type BotConfig struct {
	ResultWindow     int           `mapstructure:"result_window"      validate:"min=1,max=20"`
	NextResultWindow int           `mapstructure:"next_result_window" validate:"min=1,max=20"`
	BackoffInitial   time.Duration `mapstructure:"backoff_initial"    validate:"min=100ms"`
	BackoffMax       time.Duration `mapstructure:"backoff_max"        validate:"min=1s"`
	Messages         Messages      `mapstructure:"messages"`
}

// Messages are the fixed reply templates. Localization is out of scope; the
// defaults can be overridden wholesale through configuration.
type Messages struct {
	NothingFound string `mapstructure:"nothing_found" validate:"required"`
	PlaceLine    string `mapstructure:"place_line"    validate:"required"`
	StartLine    string `mapstructure:"start_line"    validate:"required"`
	EndLine      string `mapstructure:"end_line"      validate:"required"`
}

// Validate checks cross-field constraints not covered by struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	switch c.Intent.Provider {
	case "apiai":
		if c.Intent.APIAIToken == "" {
			return fmt.Errorf("intent.apiai_token is required for the apiai provider")
		}
	case "gemini":
		if c.Intent.GeminiAPIKey == "" {
			return fmt.Errorf("intent.gemini_api_key is required for the gemini provider")
		}
	}
	return nil
}

// Load reads config.yaml and BOT_* environment variables over the defaults,
// then validates the result.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// Missing config file is fine; env and defaults cover it.
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
