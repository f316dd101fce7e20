// internal/common/http/client.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrRetriesExhausted = errors.New("RETRIES_EXHAUSTED")

// RequestBuilder returns a fresh request for every attempt so bodies are
// never reused after a failed send.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxRetries  int
	baseBackoff time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseBackoff: 100 * time.Millisecond,
	}
}

// WithRetries sets how many extra attempts DoWithRetry makes.
func (c *Client) WithRetries(n int) *Client {
	if n < 0 {
		n = 0
	}
	c.maxRetries = n
	return c
}

func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithBackoff sets the first retry delay; later delays double.
func (c *Client) WithBackoff(base time.Duration) *Client {
	c.baseBackoff = base
	return c
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.Do(req)
}

// DoWithRetry sends the request built by build, retrying transport errors,
// 429 and 5xx responses with exponential backoff. Any other response is
// returned to the caller, who owns its body. A cancelled or expired ctx
// ends the loop with ctx.Err().
func (c *Client) DoWithRetry(ctx context.Context, build RequestBuilder) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := build(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
