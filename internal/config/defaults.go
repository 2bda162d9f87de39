package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"

	DefaultVKAPIVersion     = "5.131"
	DefaultVKPollWait       = 25
	DefaultVKPollMode       = 2
	DefaultVKRequestTimeout = 30 * time.Second

	DefaultIntentProvider    = "apiai"
	DefaultIntentTimeout     = 15 * time.Second
	DefaultIntentLang        = "en"
	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 0.2
	DefaultGeminiMaxRetries  = 2
	DefaultGeminiRetryDelay  = 2 * time.Second

	DefaultGeocoderBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultGeocoderUserAgent = "eventbot/1.0"
	DefaultGeocoderTimeout   = 10 * time.Second

	DefaultSearchIndex   = "event-index"
	DefaultSearchTimeout = 10 * time.Second

	DefaultDBPath      = "storage.db"
	DefaultDBRetention = 90 * 24 * time.Hour

	DefaultResultWindow     = 1
	DefaultNextResultWindow = 5
	DefaultBackoffInitial   = 500 * time.Millisecond
	DefaultBackoffMax       = 30 * time.Second
)

// Default reply templates.
var DefaultMessages = Messages{
	NothingFound: "Nothing found for that. Try another date, genre, or place.",
	PlaceLine:    "Place - %s",
	StartLine:    "Starts - %s",
	EndLine:      "Ends - %s",
}

func setDefaults() {
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.json", false)

	viper.SetDefault("vk.api_version", DefaultVKAPIVersion)
	viper.SetDefault("vk.poll_wait", DefaultVKPollWait)
	viper.SetDefault("vk.poll_mode", DefaultVKPollMode)
	viper.SetDefault("vk.request_timeout", DefaultVKRequestTimeout)

	viper.SetDefault("intent.provider", DefaultIntentProvider)
	viper.SetDefault("intent.timeout", DefaultIntentTimeout)
	viper.SetDefault("intent.apiai_lang", DefaultIntentLang)
	viper.SetDefault("intent.gemini_model", DefaultGeminiModel)
	viper.SetDefault("intent.gemini_temperature", DefaultGeminiTemperature)
	viper.SetDefault("intent.gemini_max_retries", DefaultGeminiMaxRetries)
	viper.SetDefault("intent.gemini_retry_delay", DefaultGeminiRetryDelay)

	viper.SetDefault("geocoder.base_url", DefaultGeocoderBaseURL)
	viper.SetDefault("geocoder.user_agent", DefaultGeocoderUserAgent)
	viper.SetDefault("geocoder.timeout", DefaultGeocoderTimeout)

	viper.SetDefault("search.addresses", []string{"http://localhost:9200"})
	viper.SetDefault("search.index", DefaultSearchIndex)
	viper.SetDefault("search.timeout", DefaultSearchTimeout)

	viper.SetDefault("database.path", DefaultDBPath)
	viper.SetDefault("database.retention", DefaultDBRetention)

	viper.SetDefault("bot.result_window", DefaultResultWindow)
	viper.SetDefault("bot.next_result_window", DefaultNextResultWindow)
	viper.SetDefault("bot.backoff_initial", DefaultBackoffInitial)
	viper.SetDefault("bot.backoff_max", DefaultBackoffMax)
	viper.SetDefault("bot.messages.nothing_found", DefaultMessages.NothingFound)
	viper.SetDefault("bot.messages.place_line", DefaultMessages.PlaceLine)
	viper.SetDefault("bot.messages.start_line", DefaultMessages.StartLine)
	viper.SetDefault("bot.messages.end_line", DefaultMessages.EndLine)
}
