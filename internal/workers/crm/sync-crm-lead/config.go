// internal/workers/crm/sync-crm-lead/config.go
package synccrmlead

import (
	"fmt"
	"time"

	"tulipai-funnel/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	LeadSource    string        `mapstructure:"lead_source"`
	LeadStatus    string        `mapstructure:"lead_status"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		LeadSource:    "TulipAI Funnel",
		LeadStatus:    "Not Contacted",
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if wc, ok := cfg.Workers[TaskType]; ok {
		c.Enabled = wc.Enabled
		if wc.MaxJobsActive > 0 {
			c.MaxJobsActive = wc.MaxJobsActive
		}
		if wc.Timeout > 0 {
			c.Timeout = config.GetDuration(wc.Timeout)
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.LeadSource == "" {
		return fmt.Errorf("lead_source is required")
	}
	return nil
}
