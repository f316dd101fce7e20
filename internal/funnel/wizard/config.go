// internal/funnel/wizard/config.go
package wizard

import (
	"time"

	"tulipai-funnel/internal/common/config"
)

type Config struct {
	GuideTimeout   time.Duration
	SummaryTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		GuideTimeout:   30 * time.Second,
		SummaryTimeout: 60 * time.Second,
	}
}

// LoadConfig reads the funnel timeouts from the application config.
func LoadConfig(cfg config.FunnelConfig) *Config {
	out := DefaultConfig()
	if cfg.GuideTimeout > 0 {
		out.GuideTimeout = config.GetDuration(cfg.GuideTimeout)
	}
	if cfg.SummaryTimeout > 0 {
		out.SummaryTimeout = config.GetDuration(cfg.SummaryTimeout)
	}
	return out
}
