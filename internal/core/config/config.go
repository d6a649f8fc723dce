package config

import (
	"log/slog"
	"strings"

	"github.com/vietddude/requester/internal/batching"
	"github.com/vietddude/requester/internal/core/domain"
	"github.com/vietddude/requester/internal/infra/openai"
	redisclient "github.com/vietddude/requester/internal/infra/redis"
	"github.com/vietddude/requester/internal/scheduler"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig          `yaml:"server"`
	Logging   LoggingConfig         `yaml:"logging"`
	Scheduler scheduler.Config      `yaml:"scheduler"`
	OpenAI    openai.Config         `yaml:"openai"`
	Model     domain.EmbeddingModel `yaml:"model"`
	Batching  batching.Config       `yaml:"batching"`
	Redis     redisclient.Config    `yaml:"redis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // health and metrics, 0 = disabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SlogLevel parses the configured level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		return slog.LevelInfo, domain.Configuration("logging.level %q is not one of debug, info, warn, error", c.Level)
	}
	return level, nil
}

// Default returns the configuration used for every key a file leaves out.
func Default() AppConfig {
	return AppConfig{
		Server:    ServerConfig{Port: 8080},
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: scheduler.DefaultConfig(),
		Model:     domain.DefaultEmbeddingModel,
		Batching:  batching.DefaultConfig(),
	}
}

// Validate checks the whole configuration. The first problem found is
// returned as a domain configuration error.
func (c *AppConfig) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return domain.Configuration("server.port %d out of range", c.Server.Port)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}

	switch {
	case c.Model.Name == "":
		return domain.Configuration("model.name is required")
	case c.Model.Encoding == "":
		return domain.Configuration("model.encoding is required")
	case c.Model.MaxTokens <= 0:
		return domain.Configuration("model.max_tokens must be > 0, got %d", c.Model.MaxTokens)
	case c.Model.OutputDimensions <= 0:
		return domain.Configuration("model.output_dimensions must be > 0, got %d", c.Model.OutputDimensions)
	}

	if err := c.Batching.Validate(c.Model); err != nil {
		return err
	}
	if ceiling := c.Batching.TokenCeiling(c.Model); ceiling > c.Scheduler.MaxCostPerMinute {
		return domain.Configuration("batch token ceiling %d exceeds scheduler.max_cost_per_minute %d",
			ceiling, c.Scheduler.MaxCostPerMinute)
	}

	if c.OpenAI.Timeout < 0 {
		return domain.Configuration("openai.timeout must be >= 0, got %s", c.OpenAI.Timeout)
	}
	if c.OpenAI.APIKey == "" && (c.OpenAI.BaseURL == "" || c.OpenAI.BaseURL == openai.DefaultBaseURL) {
		return domain.Configuration("openai.api_key is required for the public API")
	}
	if c.Redis.TTL < 0 {
		return domain.Configuration("redis.ttl must be >= 0, got %s", c.Redis.TTL)
	}
	return nil
}
