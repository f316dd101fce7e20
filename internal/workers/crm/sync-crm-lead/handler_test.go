// internal/workers/crm/sync-crm-lead/handler_test.go
package synccrmlead

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/zoho"
	"tulipai-funnel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, id string) (*models.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

type MockCRM struct {
	mock.Mock
}

func (m *MockCRM) SearchLeadsByEmail(ctx context.Context, email string) ([]zoho.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]zoho.Lead), args.Error(1)
}

func (m *MockCRM) CreateLead(ctx context.Context, lead *zoho.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

func (m *MockCRM) UpdateLead(ctx context.Context, leadID string, lead *zoho.Lead) error {
	return m.Called(ctx, leadID, lead).Error(0)
}

// ==========================
// Test Helpers
// ==========================

func testSubmission() *models.Submission {
	return &models.Submission{
		ID: "sub-1",
		FormData: models.FormData{
			Name:        "Ada King Lovelace",
			Email:       "ada@acme.com",
			Phone:       "+31201234567",
			Role:        "CTO",
			CompanyName: "Acme",
			Website:     "https://acme.com",
			TeamSize:    "11-50",
			Industries:  []string{"Fintech", "Retail"},
			AiStage:     "Exploring",
			Challenges:  []string{"Manual reporting"},
			Timeline:    "Within 3 months",
			Budget:      "60000",
		},
		Status: models.StatusNew,
	}
}

func newTestHandler(t *testing.T, store SubmissionGetter, crm LeadClient) *Handler {
	h := NewHandler(DefaultConfig(), store, crm, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
	return h
}

// ==========================
// Mapping Tests
// ==========================

func TestSplitName(t *testing.T) {
	tests := []struct {
		full, first, last string
	}{
		{"Ada King Lovelace", "Ada King", "Lovelace"},
		{"  Ada   Lovelace ", "Ada", "Lovelace"},
		{"Ada", "", "Ada"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.full, func(t *testing.T) {
			first, last := splitName(tt.full)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestLeadFromSubmission(t *testing.T) {
	lead := LeadFromSubmission(*testSubmission(), DefaultConfig())

	assert.Equal(t, "Ada King", lead.FirstName)
	assert.Equal(t, "Lovelace", lead.LastName)
	assert.Equal(t, "CTO", lead.Designation)
	assert.Equal(t, "Fintech, Retail", lead.Industry)
	assert.Equal(t, int64(60000), lead.Budget)
	assert.Equal(t, "TulipAI Funnel", lead.Source)
	assert.Contains(t, lead.Description, "Challenges: Manual reporting")

	sub := testSubmission()
	sub.Name = ""
	assert.Equal(t, "Acme", LeadFromSubmission(*sub, DefaultConfig()).LastName)
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(crm *MockCRM)
		wantAction string
		wantLeadID string
	}{
		{
			name: "creates new lead",
			setup: func(crm *MockCRM) {
				crm.On("SearchLeadsByEmail", mock.Anything, "ada@acme.com").Return([]zoho.Lead{}, nil)
				crm.On("CreateLead", mock.Anything, mock.MatchedBy(func(l *zoho.Lead) bool {
					return l.Company == "Acme" && l.Status == "Not Contacted"
				})).Return("9001", nil)
			},
			wantAction: ActionCreated,
			wantLeadID: "9001",
		},
		{
			name: "updates existing lead without touching status",
			setup: func(crm *MockCRM) {
				crm.On("SearchLeadsByEmail", mock.Anything, "ada@acme.com").
					Return([]zoho.Lead{{ID: "42", Email: "ada@acme.com"}}, nil)
				crm.On("UpdateLead", mock.Anything, "42", mock.MatchedBy(func(l *zoho.Lead) bool {
					return l.Status == ""
				})).Return(nil)
			},
			wantAction: ActionUpdated,
			wantLeadID: "42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			crm := new(MockCRM)
			store.On("Get", mock.Anything, "sub-1").Return(testSubmission(), nil)
			tt.setup(crm)

			out, err := newTestHandler(t, store, crm).Execute(context.Background(), &Input{SubmissionID: "sub-1"})

			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, out.CRMAction)
			assert.Equal(t, tt.wantLeadID, out.CRMLeadID)
			assert.Equal(t, "2025-03-14T09:30:00Z", out.SyncedAt)
			crm.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_Disabled(t *testing.T) {
	store := new(MockStore)
	store.On("Get", mock.Anything, "sub-1").Return(testSubmission(), nil)

	out, err := newTestHandler(t, store, nil).Execute(context.Background(), &Input{SubmissionID: "sub-1"})

	require.NoError(t, err)
	assert.Equal(t, ActionDisabled, out.CRMAction)
	assert.Empty(t, out.CRMLeadID)
}

func TestHandler_Execute_CRMFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(crm *MockCRM)
	}{
		{
			name: "search fails",
			setup: func(crm *MockCRM) {
				crm.On("SearchLeadsByEmail", mock.Anything, mock.Anything).Return(nil, zoho.ErrCRMRequestFailed)
			},
		},
		{
			name: "create fails",
			setup: func(crm *MockCRM) {
				crm.On("SearchLeadsByEmail", mock.Anything, mock.Anything).Return([]zoho.Lead{}, nil)
				crm.On("CreateLead", mock.Anything, mock.Anything).Return("", errors.New("INVALID_DATA"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			crm := new(MockCRM)
			store.On("Get", mock.Anything, "sub-1").Return(testSubmission(), nil)
			tt.setup(crm)

			_, err := newTestHandler(t, store, crm).Execute(context.Background(), &Input{SubmissionID: "sub-1"})

			require.Error(t, err)
			stdErr := apperrors.AsStandardError(err)
			assert.Equal(t, apperrors.ErrCodeCRMSyncFailed, stdErr.Code)
			assert.True(t, stdErr.Retryable)
		})
	}
}

func TestHandler_Execute_MissingSubmissionID(t *testing.T) {
	_, err := newTestHandler(t, new(MockStore), new(MockCRM)).Execute(context.Background(), &Input{})
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.AsStandardError(err).Code)
}
