// Package camunda connects the intake workflow to a Zeebe gateway: process
// deployment, instance creation and the job workers behind each task type.
package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client wraps the Zeebe gRPC client with error mapping and retries.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// ClientConfigFrom maps the camunda config section onto a plaintext client.
func ClientConfigFrom(cfg config.CamundaConfig) *ClientConfig {
	return &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Timeout),
		RequestTimeout:         config.GetDuration(cfg.RequestTimeout),
	}
}

func (c *ClientConfig) withDefaults() *ClientConfig {
	out := *c
	if out.RetryConfig == nil {
		out.RetryConfig = DefaultRetryConfig
	}
	if out.ConnectionTimeout <= 0 {
		out.ConnectionTimeout = 10 * time.Second
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 30 * time.Second
	}
	return &out
}

// NewClientWithConfig builds the client. The gateway is dialed lazily; use
// HealthCheck to wait for it.
func NewClientWithConfig(cfg *ClientConfig) (*Client, error) {
	cfg = cfg.withDefaults()

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client for %s: %w", cfg.GatewayAddress, err)
	}

	return &Client{client: zeebeClient, config: cfg}, nil
}

// GetClient returns the raw Zeebe client for job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// DeployProcess deploys a BPMN resource and returns the deployment key.
func (c *Client) DeployProcess(ctx context.Context, path string) (int64, error) {
	return withRetry(ctx, c.config, "deploy "+path, func(ctx context.Context) (int64, error) {
		ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
		resp, err := c.client.NewDeployResourceCommand().AddResourceFile(path).Send(ctx)
		if err != nil {
			return 0, err
		}
		return resp.GetKey(), nil
	})
}

// StartProcess creates an instance of the latest version of processID.
func (c *Client) StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error) {
	return withRetry(ctx, c.config, "create instance "+processID, func(ctx context.Context) (int64, error) {
		ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
		cmd, err := c.client.NewCreateInstanceCommand().
			BPMNProcessId(processID).
			LatestVersion().
			VariablesFromObject(variables)
		if err != nil {
			return 0, err
		}
		resp, err := cmd.Send(ctx)
		if err != nil {
			return 0, err
		}
		return resp.GetProcessInstanceKey(), nil
	})
}

// HealthCheck performs a topology request against the gateway.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// withRetry runs a Zeebe command with exponential backoff. Only transient
// failures are retried; the final error is mapped to a StandardError.
func withRetry[T any](ctx context.Context, cfg *ClientConfig, operation string, command func(context.Context) (T, error)) (T, error) {
	var zero T
	retry := cfg.RetryConfig

	for attempt := 0; ; attempt++ {
		result, err := command(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) || attempt >= retry.MaxRetries {
			return zero, mapZeebeError(err, operation, attempt)
		}

		delay := retry.BaseDelay * time.Duration(1<<attempt)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("zeebe operation '%s' cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
	}
}

func isRetryable(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		case codes.Unknown:
		default:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"connection refused", "connection reset", "broken pipe", "unavailable"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, operation string, attempt int) error {
	enhanced := fmt.Errorf("zeebe operation '%s' failed after %d attempts: %w", operation, attempt+1, err)

	code := status.Code(err)
	switch {
	case code == codes.DeadlineExceeded || stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewTimeoutError("zeebe", enhanced)
	case code == codes.Unauthenticated || code == codes.PermissionDenied:
		return errors.NewUnauthorizedError(enhanced.Error())
	case code == codes.NotFound || code == codes.InvalidArgument:
		return errors.NewValidationError(enhanced.Error())
	default:
		return errors.NewExternalServiceError("zeebe", enhanced)
	}
}
