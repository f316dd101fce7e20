// internal/assistant/config.go
package assistant

import (
	"errors"
	"time"

	"tulipai-funnel/internal/common/config"
)

type Config struct {
	GenAIBaseURL string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	MaxTokens    int
	Temperature  float64

	WebsiteTimeout  time.Duration
	UserAgent       string
	MaxWebsiteBytes int64
}

func DefaultConfig() *Config {
	return &Config{
		Model:           "gpt-4-1106-preview",
		Timeout:         60 * time.Second,
		MaxRetries:      2,
		MaxTokens:       2048,
		Temperature:     0.7,
		WebsiteTimeout:  15 * time.Second,
		UserAgent:       "TulipAI-Funnel/1.0",
		MaxWebsiteBytes: 2 << 20,
	}
}

// LoadConfig overlays the configured API settings on the defaults.
func LoadConfig(cfg config.APIsConfig) *Config {
	out := DefaultConfig()
	out.GenAIBaseURL = cfg.GenAI.BaseURL
	out.APIKey = cfg.GenAI.APIKey
	if cfg.GenAI.Model != "" {
		out.Model = cfg.GenAI.Model
	}
	if cfg.GenAI.Timeout > 0 {
		out.Timeout = config.GetDuration(cfg.GenAI.Timeout)
	}
	if cfg.GenAI.MaxRetries > 0 {
		out.MaxRetries = cfg.GenAI.MaxRetries
	}
	if cfg.GenAI.MaxTokens > 0 {
		out.MaxTokens = cfg.GenAI.MaxTokens
	}
	if cfg.GenAI.Temperature > 0 {
		out.Temperature = cfg.GenAI.Temperature
	}
	if cfg.Website.Timeout > 0 {
		out.WebsiteTimeout = config.GetDuration(cfg.Website.Timeout)
	}
	if cfg.Website.UserAgent != "" {
		out.UserAgent = cfg.Website.UserAgent
	}
	if cfg.Website.MaxBytes > 0 {
		out.MaxWebsiteBytes = cfg.Website.MaxBytes
	}
	return out
}

func (c *Config) Validate() error {
	if c.GenAIBaseURL == "" {
		return errors.New("genai base_url is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("genai temperature must be between 0 and 2")
	}
	return nil
}
