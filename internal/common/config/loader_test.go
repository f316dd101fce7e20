package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: db.internal
    database: tulipai
    user: funnel
  redis:
    address: redis.internal:6379
apis:
  genai:
    base_url: http://genai.internal
workers:
  generate-proposal:
    enabled: true
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "tulipai-funnel", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "redis", cfg.Funnel.DraftStore)
	assert.Equal(t, "tulipai_funnel_draft", cfg.Funnel.DraftKey)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "submissions", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, "submission-intake", cfg.Camunda.ProcessID)
	assert.Equal(t, 0.7, cfg.APIs.GenAI.Temperature)
	assert.Equal(t, 50000, cfg.Notifications.SMS.BudgetThreshold)

	worker := GetWorkerConfig(cfg, "generate-proposal")
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 3, worker.MaxRetries)

	fallback := GetWorkerConfig(cfg, "unknown")
	assert.True(t, fallback.Enabled)
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
}

func TestLoadFromFile_ExpandsEnvironment(t *testing.T) {
	t.Setenv("FUNNEL_TEST_DB_PASSWORD", "s3cret")
	t.Setenv("ADMIN_API_TOKEN", "admin-token")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "admin-token", cfg.Admin.APIToken)

	cfg, err = LoadFromFile(writeConfig(t, `
database:
  postgres:
    host: db.internal
    database: tulipai
    user: funnel
    password: ${FUNNEL_TEST_DB_PASSWORD}
  redis:
    address: redis.internal:6379
apis:
  genai:
    base_url: http://genai.internal
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "password=s3cret")
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "redis draft store without redis address",
			body: `
database:
  postgres: {host: db, database: d, user: u}
apis:
  genai: {base_url: http://genai}
`,
			wantErr: "database.redis.address is required",
		},
		{
			name: "unknown draft store",
			body: `
funnel: {draft_store: sqlite}
database:
  postgres: {host: db, database: d, user: u}
apis:
  genai: {base_url: http://genai}
`,
			wantErr: "funnel.draft_store must be one of",
		},
		{
			name: "camunda enabled without broker",
			body: `
funnel: {draft_store: memory}
camunda: {enabled: true}
database:
  postgres: {host: db, database: d, user: u}
apis:
  genai: {base_url: http://genai}
`,
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "missing genai url",
			body: `
funnel: {draft_store: memory}
database:
  postgres: {host: db, database: d, user: u}
`,
			wantErr: "apis.genai.base_url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestElasticsearchConfig_GetURL(t *testing.T) {
	assert.Equal(t, "http://a:9200", ElasticsearchConfig{Addresses: []string{"http://a:9200"}}.GetURL())
	assert.Equal(t, "http://b:9200", ElasticsearchConfig{URL: "http://b:9200", Addresses: []string{"http://a:9200"}}.GetURL())
	assert.Equal(t, "", ElasticsearchConfig{}.GetURL())
}
