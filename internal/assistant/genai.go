// internal/assistant/genai.go
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	httpclient "tulipai-funnel/internal/common/http"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
)

var (
	ErrLLMTimeout          = errors.New("LLM_TIMEOUT")
	ErrLLMGenerationFailed = errors.New("LLM_GENERATION_FAILED")
)

// Request is one completion call. Zero MaxTokens and Temperature fall back
// to the client configuration.
type Request struct {
	Purpose     string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type GenAIClient struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger
}

func NewGenAIClient(config *Config, log logger.Logger) *GenAIClient {
	return &GenAIClient{
		config: config,
		// deadline comes from the per-call context
		client: httpclient.NewClient(0).WithRetries(config.MaxRetries),
		logger: log.WithFields(map[string]interface{}{
			"component": "genai",
		}),
	}
}

type generateRequest struct {
	Model       string  `json:"model,omitempty"`
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func (c *GenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	body := generateRequest{
		Model:       c.config.Model,
		System:      req.System,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.config.MaxTokens
	}
	if body.Temperature == 0 {
		body.Temperature = c.config.Temperature
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err)
	}

	start := time.Now()
	resp, err := c.client.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GenAIBaseURL+"/api/ai/generate", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			r.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}
		return r, nil
	})
	metrics.LLMRequestDuration.WithLabelValues(req.Purpose).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", ErrLLMTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLLMGenerationFailed, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrLLMGenerationFailed, err)
	}

	c.logger.Debug("generation completed", map[string]interface{}{
		"purpose":  req.Purpose,
		"chars":    len(out.Text),
		"duration": time.Since(start).String(),
	})

	return strings.TrimSpace(out.Text), nil
}
