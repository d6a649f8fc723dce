package scheduler

import (
	"time"

	"github.com/vietddude/requester/internal/core/domain"
)

// Config holds scheduler limits. Zero values are invalid except where noted.
type Config struct {
	MaxRequestsPerMinute int           `yaml:"max_requests_per_minute"`
	MaxCostPerMinute     int           `yaml:"max_cost_per_minute"`
	MaxAttempts          int           `yaml:"max_attempts"`
	Cooldown             time.Duration `yaml:"cooldown"`        // pause after a rate-limit signal, 0 = none
	PollInterval         time.Duration `yaml:"poll_interval"`   // yield while throttled
	MaxInFlight          int           `yaml:"max_in_flight"`   // 0 = unlimited
	RequestTimeout       time.Duration `yaml:"request_timeout"` // per attempt, 0 = none
}

// DefaultConfig returns half of OpenAI's tier-one embedding limits.
func DefaultConfig() Config {
	return Config{
		MaxRequestsPerMinute: 1500,
		MaxCostPerMinute:     125000,
		MaxAttempts:          5,
		Cooldown:             15 * time.Second,
		PollInterval:         time.Millisecond, // caps throughput at ~1000 dispatches/s while throttled
	}
}

// Validate checks every limit eagerly so bad settings never reach the loop.
func (c Config) Validate() error {
	switch {
	case c.MaxRequestsPerMinute <= 0:
		return domain.Configuration("max_requests_per_minute must be > 0, got %d", c.MaxRequestsPerMinute)
	case c.MaxCostPerMinute <= 0:
		return domain.Configuration("max_cost_per_minute must be > 0, got %d", c.MaxCostPerMinute)
	case c.MaxAttempts < 1:
		return domain.Configuration("max_attempts must be >= 1, got %d", c.MaxAttempts)
	case c.Cooldown < 0:
		return domain.Configuration("cooldown must be >= 0, got %s", c.Cooldown)
	case c.PollInterval <= 0:
		return domain.Configuration("poll_interval must be > 0, got %s", c.PollInterval)
	case c.MaxInFlight < 0:
		return domain.Configuration("max_in_flight must be >= 0, got %d", c.MaxInFlight)
	case c.RequestTimeout < 0:
		return domain.Configuration("request_timeout must be >= 0, got %s", c.RequestTimeout)
	}
	return nil
}

// CheckCost rejects a request cost that no budget refill could ever cover.
func (c Config) CheckCost(cost int) error {
	if cost < 0 {
		return domain.Configuration("request cost must be >= 0, got %d", cost)
	}
	if cost > c.MaxCostPerMinute {
		return domain.Configuration("request cost %d exceeds max_cost_per_minute %d", cost, c.MaxCostPerMinute)
	}
	return nil
}
