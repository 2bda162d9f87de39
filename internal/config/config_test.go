package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		VK: VKConfig{
			Token:          "vk-token",
			APIVersion:     DefaultVKAPIVersion,
			PollWait:       DefaultVKPollWait,
			PollMode:       DefaultVKPollMode,
			RequestTimeout: DefaultVKRequestTimeout,
		},
		Intent: IntentConfig{
			Provider:          "apiai",
			Timeout:           DefaultIntentTimeout,
			APIAIToken:        "nlu-token",
			APIAILang:         DefaultIntentLang,
			GeminiTemperature: DefaultGeminiTemperature,
			GeminiMaxRetries:  DefaultGeminiMaxRetries,
		},
		Geocoder: GeocoderConfig{
			BaseURL:   DefaultGeocoderBaseURL,
			UserAgent: DefaultGeocoderUserAgent,
			Timeout:   DefaultGeocoderTimeout,
		},
		Search: SearchConfig{
			Addresses: []string{"http://localhost:9200"},
			Index:     DefaultSearchIndex,
			Timeout:   DefaultSearchTimeout,
		},
		Database: DatabaseConfig{
			Path:      DefaultDBPath,
			Retention: DefaultDBRetention,
		},
		Bot: BotConfig{
			ResultWindow:     DefaultResultWindow,
			NextResultWindow: DefaultNextResultWindow,
			BackoffInitial:   DefaultBackoffInitial,
			BackoffMax:       DefaultBackoffMax,
			Messages:         DefaultMessages,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(_ *Config) {},
		},
		{
			name:    "missing vk token",
			mutate:  func(c *Config) { c.VK.Token = "" },
			wantErr: "Token",
		},
		{
			name:    "poll wait above server maximum",
			mutate:  func(c *Config) { c.VK.PollWait = 120 },
			wantErr: "PollWait",
		},
		{
			name:    "unknown intent provider",
			mutate:  func(c *Config) { c.Intent.Provider = "watson" },
			wantErr: "Provider",
		},
		{
			name: "apiai provider without token",
			mutate: func(c *Config) {
				c.Intent.Provider = "apiai"
				c.Intent.APIAIToken = ""
			},
			wantErr: "apiai_token",
		},
		{
			name: "gemini provider without key",
			mutate: func(c *Config) {
				c.Intent.Provider = "gemini"
				c.Intent.GeminiAPIKey = ""
			},
			wantErr: "gemini_api_key",
		},
		{
			name:    "no search addresses",
			mutate:  func(c *Config) { c.Search.Addresses = nil },
			wantErr: "Addresses",
		},
		{
			name:    "invalid search address",
			mutate:  func(c *Config) { c.Search.Addresses = []string{"localhost 9200"} },
			wantErr: "Addresses",
		},
		{
			name:    "missing reply template",
			mutate:  func(c *Config) { c.Bot.Messages.NothingFound = "" },
			wantErr: "NothingFound",
		},
		{
			name:    "result window too large",
			mutate:  func(c *Config) { c.Bot.ResultWindow = 50 },
			wantErr: "ResultWindow",
		},
		{
			name:    "backoff initial too small",
			mutate:  func(c *Config) { c.Bot.BackoffInitial = time.Millisecond },
			wantErr: "BackoffInitial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestGeminiProviderAcceptsKey(t *testing.T) {
	cfg := validConfig()
	cfg.Intent.Provider = "gemini"
	cfg.Intent.APIAIToken = ""
	cfg.Intent.GeminiAPIKey = "key"
	cfg.Intent.GeminiRetryDelay = DefaultGeminiRetryDelay

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
