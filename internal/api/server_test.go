package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tulipai-funnel/internal/admin"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/funnel/draft"
	"tulipai-funnel/internal/funnel/wizard"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes and Mocks
// ==========================

type fakeGuides struct{}

func newFakeGuides() *fakeGuides { return &fakeGuides{} }

func (f *fakeGuides) InitialText(step models.Step) string { return "loading " + step.String() }

func (f *fakeGuides) FetchGuide(_ context.Context, step models.Step, _ models.FormData) (models.Guide, error) {
	return models.Guide{Text: "guide:" + step.String(), Suggestions: []string{"Use AI for invoices"}}, nil
}

func (f *fakeGuides) SummarizeWebsite(context.Context, string) (models.CompanyInsights, error) {
	return models.CompanyInsights{Summary: "Acme builds rockets", Insights: []string{"aerospace"}}, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	created []models.FormData
}

func (g *fakeGateway) Create(_ context.Context, form models.FormData) (*models.Submission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, form)
	return &models.Submission{
		ID:          fmt.Sprintf("sub-%d", len(g.created)),
		FormData:    form,
		SubmittedAt: time.Now(),
		Status:      models.StatusNew,
	}, nil
}

type MockAdmin struct {
	mock.Mock
}

func (m *MockAdmin) submission(args mock.Arguments) (*models.Submission, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockAdmin) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Submission), args.Error(1)
}

func (m *MockAdmin) Get(ctx context.Context, id string) (*models.Submission, error) {
	return m.submission(m.Called(ctx, id))
}

func (m *MockAdmin) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) (*models.Submission, error) {
	return m.submission(m.Called(ctx, id, status))
}

func (m *MockAdmin) SaveQuote(ctx context.Context, id, quote string) (*models.Submission, error) {
	return m.submission(m.Called(ctx, id, quote))
}

func (m *MockAdmin) SaveNotes(ctx context.Context, id, notes string) (*models.Submission, error) {
	return m.submission(m.Called(ctx, id, notes))
}

func (m *MockAdmin) GenerateQuote(ctx context.Context, id string, force bool) (*models.Submission, error) {
	return m.submission(m.Called(ctx, id, force))
}

func (m *MockAdmin) RegenerateProposal(ctx context.Context, id, brief string) (*models.Submission, error) {
	return m.submission(m.Called(ctx, id, brief))
}

func (m *MockAdmin) SendQuote(ctx context.Context, id string, req admin.SendQuoteRequest) (*models.Submission, error) {
	return m.submission(m.Called(ctx, id, req))
}

func (m *MockAdmin) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAdmin) Pipeline(ctx context.Context) (*admin.Pipeline, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*admin.Pipeline), args.Error(1)
}

func (m *MockAdmin) Analytics(ctx context.Context, filter submission.AnalyticsFilter) (*submission.Analytics, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submission.Analytics), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

const testToken = "s3cret"

type testEnv struct {
	server   *httptest.Server
	sessions *Sessions
	gateway  *fakeGateway
	admin    *MockAdmin
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewTestLogger(t)
	env := &testEnv{gateway: &fakeGateway{}, admin: new(MockAdmin)}
	stores := map[string]*draft.MemoryStore{}
	var mu sync.Mutex

	env.sessions = NewSessions(time.Hour, "funnel:draft", func(key string) *wizard.Controller {
		mu.Lock()
		store, ok := stores[key]
		if !ok {
			store = draft.NewMemoryStore(log)
			stores[key] = store
		}
		mu.Unlock()
		return wizard.NewController(nil, wizard.Dependencies{
			Guides:  newFakeGuides(),
			Drafts:  store,
			Gateway: env.gateway,
		}, log)
	}, log)

	srv := NewServer(env.sessions, env.admin, Options{
		AdminToken: testToken,
		Checks: map[string]ReadinessCheck{
			"postgres": func(context.Context) error { return nil },
		},
	}, log)
	env.server = httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		env.server.Close()
		env.sessions.Wait()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func state(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	s, ok := body["state"].(map[string]interface{})
	require.True(t, ok, "response carries a state: %v", body)
	return s
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

// ==========================
// Ops Endpoint Tests
// ==========================

func TestOpsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, body = env.do(t, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])

	resp, _ = env.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyReportsFailedChecks(t *testing.T) {
	log := logger.NewTestLogger(t)
	srv := NewServer(NewSessions(time.Minute, "k", nil, log), nil, Options{
		Checks: map[string]ReadinessCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	}, log)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

// ==========================
// Funnel Flow Tests
// ==========================

func TestFunnel_FullFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/funnel/sessions", createSessionRequest{ClientID: "browser-1"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, false, body["hasDraft"])
	id := body["session"].(map[string]interface{})["id"].(string)
	base := "/api/funnel/sessions/" + id

	_, body = env.do(t, http.MethodPost, base+"/start", nil, "")
	assert.Equal(t, "funnel", state(t, body)["page"])
	assert.Equal(t, float64(models.StepBusinessInfo), state(t, body)["step"])

	// Next on an empty form stays put and reports field errors with 200.
	resp, body = env.do(t, http.MethodPost, base+"/next", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["advanced"])
	assert.NotEmpty(t, state(t, body)["errors"])

	_, body = env.do(t, http.MethodPatch, base+"/form", map[string]interface{}{
		"name":        "Ada Lovelace",
		"email":       "ada@acme.com",
		"companyName": "Acme",
		"website":     "acme.com",
		"role":        "CTO",
	}, "")
	assert.Empty(t, state(t, body)["errors"])

	_, body = env.do(t, http.MethodPost, base+"/next", nil, "")
	assert.Equal(t, true, body["advanced"])
	assert.Equal(t, float64(models.StepBusinessInfo+1), state(t, body)["step"])

	_, body = env.do(t, http.MethodGet, base+"/draft", nil, "")
	assert.Equal(t, true, body["hasDraft"])

	for i := 0; i < int(models.StepSummary) && state(t, body)["step"] != float64(models.StepSummary); i++ {
		_, body = env.do(t, http.MethodPost, base+"/next", nil, "")
	}
	require.Equal(t, float64(models.StepSummary), state(t, body)["step"])

	// Summary only moves on through proceed-to-payment.
	_, body = env.do(t, http.MethodPost, base+"/next", nil, "")
	assert.Equal(t, false, body["advanced"])

	_, body = env.do(t, http.MethodPost, base+"/proceed-to-payment", nil, "")
	require.Equal(t, float64(models.StepPayment), state(t, body)["step"])

	resp, body = env.do(t, http.MethodPost, base+"/complete-payment", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(models.StepConfirmation), state(t, body)["step"])
	assert.Equal(t, "sub-1", body["submission"].(map[string]interface{})["id"])
	require.Len(t, env.gateway.created, 1)
	assert.Equal(t, "Acme", env.gateway.created[0].CompanyName)

	_, body = env.do(t, http.MethodGet, base+"/draft", nil, "")
	assert.Equal(t, false, body["hasDraft"], "draft cleared after submission")
}

func TestFunnel_Errors(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodPost, "/api/funnel/sessions", nil, "")
	base := "/api/funnel/sessions/" + body["session"].(map[string]interface{})["id"].(string)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown session",
			method:     http.MethodGet,
			path:       "/api/funnel/sessions/nope",
			wantStatus: http.StatusNotFound,
			wantCode:   "SESSION_NOT_FOUND",
		},
		{
			name:       "regenerate summary outside the funnel",
			method:     http.MethodPost,
			path:       base + "/summary/regenerate",
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "pay before the payment step",
			method:     http.MethodPost,
			path:       base + "/pay",
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "empty suggestion",
			method:     http.MethodPost,
			path:       base + "/suggestions",
			body:       suggestionRequest{Text: "  "},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown form field",
			method:     http.MethodPatch,
			path:       base + "/form",
			body:       map[string]string{"favouriteColour": "blue"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.method, tt.path, tt.body, "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, errorCode(body))
		})
	}
}

func TestFunnel_Options(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/funnel/options", nil, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "options")
	assert.Len(t, body["steps"], len(models.AllSteps()))
}

// ==========================
// Admin Route Tests
// ==========================

func TestAdmin_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	for _, token := range []string{"", "wrong"} {
		resp, body := env.do(t, http.MethodGet, "/api/admin/submissions", nil, token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", errorCode(body))
	}
	env.admin.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestAdmin_ListSubmissions(t *testing.T) {
	env := newTestEnv(t)
	env.admin.On("List", mock.Anything, models.SubmissionFilter{
		Status:    models.StatusNew,
		Query:     "acme",
		SortKey:   "budget",
		Ascending: true,
		Limit:     maxListLimit,
		Offset:    10,
	}).Return([]models.Submission{{ID: "sub-1"}}, nil)

	resp, body := env.do(t, http.MethodGet,
		"/api/admin/submissions?status=new&q=acme&sort=budget&order=asc&limit=9999&offset=10", nil, testToken)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
	env.admin.AssertExpectations(t)
}

func TestAdmin_SubmissionErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		setup      func(m *MockAdmin)
		wantStatus int
		wantCode   string
	}{
		{
			name:   "not found",
			method: http.MethodGet,
			path:   "/api/admin/submissions/missing",
			setup: func(m *MockAdmin) {
				m.On("Get", mock.Anything, "missing").
					Return(nil, fmt.Errorf("%w: missing", submission.ErrSubmissionNotFound))
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "SUBMISSION_NOT_FOUND",
		},
		{
			name:   "invalid status",
			method: http.MethodPatch,
			path:   "/api/admin/submissions/sub-1/status",
			body:   statusRequest{Status: "archived"},
			setup: func(m *MockAdmin) {
				m.On("UpdateStatus", mock.Anything, "sub-1", models.SubmissionStatus("archived")).
					Return(nil, fmt.Errorf("%w: archived", submission.ErrInvalidStatus))
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_STATUS",
		},
		{
			name:   "send without quote",
			method: http.MethodPost,
			path:   "/api/admin/submissions/sub-1/quote/send",
			body:   admin.SendQuoteRequest{Subject: "Hi"},
			setup: func(m *MockAdmin) {
				m.On("SendQuote", mock.Anything, "sub-1", admin.SendQuoteRequest{Subject: "Hi"}).
					Return(nil, fmt.Errorf("%w: submission sub-1", admin.ErrNoQuote))
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:   "analytics without search",
			method: http.MethodGet,
			path:   "/api/admin/analytics",
			setup: func(m *MockAdmin) {
				m.On("Analytics", mock.Anything, submission.AnalyticsFilter{}).
					Return(nil, admin.ErrSearchUnavailable)
			},
			wantStatus: http.StatusBadGateway,
			wantCode:   "EXTERNAL_SERVICE_ERROR",
		},
		{
			name:       "bad analytics interval",
			method:     http.MethodGet,
			path:       "/api/admin/analytics?interval=year",
			setup:      func(*MockAdmin) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:   "database down",
			method: http.MethodGet,
			path:   "/api/admin/pipeline",
			setup: func(m *MockAdmin) {
				m.On("Pipeline", mock.Anything).
					Return(nil, fmt.Errorf("%w: list: connection refused", submission.ErrQueryFailed))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "QUERY_EXECUTION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env.admin)

			resp, body := env.do(t, tt.method, tt.path, tt.body, testToken)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, errorCode(body))
			env.admin.AssertExpectations(t)
		})
	}
}

func TestAdmin_QuoteActions(t *testing.T) {
	env := newTestEnv(t)
	sub := &models.Submission{ID: "sub-1", FormData: models.FormData{CompanyName: "Acme", GeneratedQuote: "## Hi"}}
	env.admin.On("GenerateQuote", mock.Anything, "sub-1", true).Return(sub, nil).Once()
	env.admin.On("RegenerateProposal", mock.Anything, "sub-1", "shorter").Return(sub, nil).Once()
	env.admin.On("SaveNotes", mock.Anything, "sub-1", "call Monday").Return(sub, nil).Once()
	env.admin.On("Delete", mock.Anything, "sub-1").Return(nil).Once()

	resp, body := env.do(t, http.MethodPost, "/api/admin/submissions/sub-1/quote/generate?force=true", nil, testToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sub-1", body["id"])

	resp, _ = env.do(t, http.MethodPost, "/api/admin/submissions/sub-1/quote/regenerate", regenerateRequest{Brief: "shorter"}, testToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/admin/submissions/sub-1/notes", notesRequest{Notes: "call Monday"}, testToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/admin/submissions/sub-1", nil, testToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	env.admin.AssertExpectations(t)
}

func TestAdmin_ProposalPreview(t *testing.T) {
	env := newTestEnv(t)
	env.admin.On("Get", mock.Anything, "sub-1").Return(&models.Submission{
		ID:       "sub-1",
		FormData: models.FormData{CompanyName: "Acme Corp", GeneratedQuote: "## 1. Executive Brief\nHello **there**"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/submissions/sub-1/proposal?download=1", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	NewServer(env.sessions, env.admin, Options{AdminToken: testToken}, logger.NewNoOpLogger()).
		Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tulipai-proposal-acme-corp.html")
	assert.Contains(t, rec.Body.String(), "<strong>there</strong>")
}

func TestParseAnalyticsFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/?from=2025-01-01&to=2025-02-01T00:00:00Z&industries=Finance,%20Retail&budgetMin=1000&interval=week", nil)

	filter, err := parseAnalyticsFilter(req)

	require.NoError(t, err)
	require.NotNil(t, filter.From)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *filter.From)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), *filter.To)
	assert.Equal(t, []string{"Finance", "Retail"}, filter.Industries)
	assert.Equal(t, int64(1000), *filter.BudgetMin)
	assert.Nil(t, filter.BudgetMax)
	assert.Equal(t, "week", filter.Interval)
}
