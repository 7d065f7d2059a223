package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken    string `envconfig:"BOT_TOKEN" required:"true"`
	AdminUserID int64  `envconfig:"ADMIN_USER_ID" default:"0"`
	DBPath      string `envconfig:"DB_PATH" default:"./data/moody.db"`
	DefaultTZ   string `envconfig:"DEFAULT_TZ" default:"Europe/Paris"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"` // healthz

	// OpenRouter (OpenAI-compatible) API used for weekly report generation.
	OpenRouterAPIKey  string `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	OpenRouterModel   string `envconfig:"OPENROUTER_MODEL" default:"openai/gpt-5"`

	// MaxUsers caps how many unique users may register with the bot.
	MaxUsers int `envconfig:"MAX_USERS" default:"100"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
