// Package assistant implements the LLM-backed guide, website summary and
// proposal writer used by the funnel and the admin surface.
package assistant

import (
	"tulipai-funnel/internal/common/logger"
)

const (
	purposeGuide      = "guide"
	purposeSummary    = "summary"
	purposeQuote      = "quote"
	purposeRegenerate = "regenerate"
)

type Service struct {
	config  *Config
	llm     Generator
	fetcher PageFetcher
	logger  logger.Logger
}

func NewService(config *Config, llm Generator, fetcher PageFetcher, log logger.Logger) *Service {
	return &Service{
		config:  config,
		llm:     llm,
		fetcher: fetcher,
		logger: log.WithFields(map[string]interface{}{
			"component": "assistant",
		}),
	}
}

// New wires the HTTP GenAI client and website fetcher.
func New(config *Config, log logger.Logger) *Service {
	return NewService(config, NewGenAIClient(config, log), NewWebsiteFetcher(config, log), log)
}
