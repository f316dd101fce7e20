package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tulipai-funnel/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// GenAI client
// ==========================

func testConfig(baseURL string) *Config {
	cfg := DefaultConfig()
	cfg.GenAIBaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 2
	return cfg
}

func TestGenAIClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sys", body.System)
		assert.Equal(t, "hello", body.Prompt)
		assert.Equal(t, 2048, body.MaxTokens)
		assert.Equal(t, 0.5, body.Temperature)

		_ = json.NewEncoder(w).Encode(generateResponse{Text: "  answer \n"})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.APIKey = "secret"
	client := NewGenAIClient(cfg, logger.NewTestLogger(t))

	text, err := client.Generate(context.Background(), Request{Purpose: "test", System: "sys", Prompt: "hello", Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
}

func TestGenAIClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "retry me", body.Prompt)
		_ = json.NewEncoder(w).Encode(generateResponse{Text: "ok"})
	}))
	defer server.Close()

	client := NewGenAIClient(testConfig(server.URL), logger.NewTestLogger(t))
	text, err := client.Generate(context.Background(), Request{Prompt: "retry me"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		wantErr error
	}{
		{
			name: "bad request is not retried",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			wantErr: ErrLLMGenerationFailed,
		},
		{
			name: "undecodable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantErr: ErrLLMGenerationFailed,
		},
		{
			name: "persistent server errors",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: ErrLLMGenerationFailed,
		},
		{
			name: "deadline",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout: 50 * time.Millisecond,
			wantErr: ErrLLMTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			cfg := testConfig(server.URL)
			if tt.timeout > 0 {
				cfg.Timeout = tt.timeout
			}
			client := NewGenAIClient(cfg, logger.NewTestLogger(t))

			_, err := client.Generate(context.Background(), Request{Prompt: "p"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
