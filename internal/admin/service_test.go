package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
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

func (m *MockStore) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Submission), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, id string, upd models.SubmissionUpdate) (*models.Submission, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) GenerateQuote(ctx context.Context, sub models.Submission) (string, error) {
	args := m.Called(ctx, sub)
	return args.String(0), args.Error(1)
}

func (m *MockWriter) RegenerateFromBrief(ctx context.Context, sub models.Submission, brief string) (string, error) {
	args := m.Called(ctx, sub, brief)
	return args.String(0), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendQuote(ctx context.Context, email models.QuoteEmail) (*models.Notification, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

type MockSearch struct {
	mock.Mock
}

func (m *MockSearch) IndexSubmission(ctx context.Context, sub models.Submission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockSearch) DeleteSubmission(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSearch) Analytics(ctx context.Context, filter submission.AnalyticsFilter) (*submission.Analytics, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submission.Analytics), args.Error(1)
}

type fixture struct {
	svc    *Service
	store  *MockStore
	writer *MockWriter
	mailer *MockMailer
	search *MockSearch
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:  new(MockStore),
		writer: new(MockWriter),
		mailer: new(MockMailer),
		search: new(MockSearch),
	}
	f.svc = NewService(Dependencies{
		Store:  f.store,
		Writer: f.writer,
		Mailer: f.mailer,
		Search: f.search,
	}, logger.NewTestLogger(t))
	t.Cleanup(func() {
		f.store.AssertExpectations(t)
		f.writer.AssertExpectations(t)
		f.mailer.AssertExpectations(t)
		f.search.AssertExpectations(t)
	})
	return f
}

const subID = "6f1c2d3e-4a5b-4c6d-8e9f-0a1b2c3d4e5f"

func newSubmission(quote string) *models.Submission {
	return &models.Submission{
		ID:     subID,
		Status: models.StatusNew,
		FormData: models.FormData{
			Name:           "Ada Lovelace",
			Email:          "ada@acme.com",
			CompanyName:    "Acme",
			Budget:         "20000",
			GeneratedQuote: quote,
		},
	}
}

func quoteUpdate(quote string, loading bool) models.SubmissionUpdate {
	return models.SubmissionUpdate{GeneratedQuote: models.Ref(quote), IsQuoteLoading: models.Ref(loading)}
}

// ==========================
// Quote lifecycle
// ==========================

func TestService_GenerateQuote(t *testing.T) {
	f := newFixture(t)
	sub := newSubmission("")
	done := newSubmission("## 1. Executive Brief\nHi")

	f.store.On("Get", mock.Anything, subID).Return(sub, nil).Once()
	f.store.On("Update", mock.Anything, subID, quoteUpdate("", true)).Return(sub, nil).Once()
	f.writer.On("GenerateQuote", mock.Anything, *sub).Return(done.GeneratedQuote, nil).Once()
	f.store.On("Update", mock.Anything, subID, quoteUpdate(done.GeneratedQuote, false)).Return(done, nil).Once()

	got, err := f.svc.GenerateQuote(context.Background(), subID, false)
	require.NoError(t, err)
	assert.Equal(t, done.GeneratedQuote, got.GeneratedQuote)
}

func TestService_GenerateQuote_KeepsExistingUnlessForced(t *testing.T) {
	f := newFixture(t)
	sub := newSubmission("existing")
	f.store.On("Get", mock.Anything, subID).Return(sub, nil).Once()

	got, err := f.svc.GenerateQuote(context.Background(), subID, false)
	require.NoError(t, err)
	assert.Equal(t, "existing", got.GeneratedQuote)
	f.writer.AssertNotCalled(t, "GenerateQuote", mock.Anything, mock.Anything)
}

func TestService_GenerateQuote_FailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	sub := newSubmission("old")
	failed := newSubmission(QuoteErrorText)

	f.store.On("Get", mock.Anything, subID).Return(sub, nil).Once()
	f.store.On("Update", mock.Anything, subID, quoteUpdate("", true)).Return(sub, nil).Once()
	f.writer.On("GenerateQuote", mock.Anything, *sub).Return("", errors.New("LLM_TIMEOUT")).Once()
	f.store.On("Update", mock.Anything, subID, quoteUpdate(QuoteErrorText, false)).Return(failed, nil).Once()

	got, err := f.svc.GenerateQuote(context.Background(), subID, true)
	require.NoError(t, err)
	assert.Equal(t, QuoteErrorText, got.GeneratedQuote)
	assert.False(t, got.IsQuoteLoading)
}

func TestService_RegenerateProposal(t *testing.T) {
	t.Run("saves the regenerated proposal", func(t *testing.T) {
		f := newFixture(t)
		sub := newSubmission("old")
		f.store.On("Get", mock.Anything, subID).Return(sub, nil).Once()
		f.writer.On("RegenerateFromBrief", mock.Anything, *sub, "New brief").Return("new proposal", nil).Once()
		f.store.On("Update", mock.Anything, subID, models.SubmissionUpdate{GeneratedQuote: models.Ref("new proposal")}).
			Return(newSubmission("new proposal"), nil).Once()

		got, err := f.svc.RegenerateProposal(context.Background(), subID, "New brief")
		require.NoError(t, err)
		assert.Equal(t, "new proposal", got.GeneratedQuote)
	})

	t.Run("writer failure keeps the old proposal", func(t *testing.T) {
		f := newFixture(t)
		sub := newSubmission("old")
		f.store.On("Get", mock.Anything, subID).Return(sub, nil).Once()
		f.writer.On("RegenerateFromBrief", mock.Anything, *sub, "brief").Return("", errors.New("unparsable")).Once()

		_, err := f.svc.RegenerateProposal(context.Background(), subID, "brief")
		assert.ErrorIs(t, err, ErrQuoteGenerateFailed)
		f.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty brief", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RegenerateProposal(context.Background(), subID, "  ")
		assert.ErrorIs(t, err, ErrQuoteGenerateFailed)
	})
}

func TestService_SendQuote(t *testing.T) {
	f := newFixture(t)
	sub := newSubmission("## 1. Executive Brief")
	sent := newSubmission("## 1. Executive Brief")
	sent.Status = models.StatusProposalSent

	f.store.On("Get", mock.Anything, subID).Return(sub, nil).Once()
	f.mailer.On("SendQuote", mock.Anything, models.QuoteEmail{
		CompanyName:     "Acme",
		ContactName:     "Ada Lovelace",
		ContactEmail:    "ada@acme.com",
		QuoteContent:    "## 1. Executive Brief",
		SubmissionID:    subID,
		SubjectOverride: "Your proposal",
	}).Return(&models.Notification{Status: "sent"}, nil).Once()
	status := models.StatusProposalSent
	f.store.On("Update", mock.Anything, subID, models.SubmissionUpdate{Status: &status}).Return(sent, nil).Once()
	f.search.On("IndexSubmission", mock.Anything, *sent).Return(nil).Once()

	got, err := f.svc.SendQuote(context.Background(), subID, SendQuoteRequest{Subject: "Your proposal"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusProposalSent, got.Status)
}

func TestService_SendQuote_Errors(t *testing.T) {
	t.Run("no quote yet", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Get", mock.Anything, subID).Return(newSubmission(""), nil).Once()
		_, err := f.svc.SendQuote(context.Background(), subID, SendQuoteRequest{})
		assert.ErrorIs(t, err, ErrNoQuote)
	})

	t.Run("failed generation is not sent", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Get", mock.Anything, subID).Return(newSubmission(QuoteErrorText), nil).Once()
		_, err := f.svc.SendQuote(context.Background(), subID, SendQuoteRequest{})
		assert.ErrorIs(t, err, ErrNoQuote)
	})

	t.Run("mail failure leaves status alone", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Get", mock.Anything, subID).Return(newSubmission("quote"), nil).Once()
		f.mailer.On("SendQuote", mock.Anything, mock.Anything).Return(nil, errors.New("NOTIFICATION_SEND_FAILED")).Once()
		_, err := f.svc.SendQuote(context.Background(), subID, SendQuoteRequest{})
		assert.Error(t, err)
		f.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

// ==========================
// Delete / Analytics
// ==========================

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	f.store.On("Delete", mock.Anything, subID).Return(nil).Once()
	f.search.On("DeleteSubmission", mock.Anything, subID).Return(errors.New("cluster red")).Once()

	assert.NoError(t, f.svc.Delete(context.Background(), subID), "search failures are not surfaced")
}

func TestService_Delete_NotFound(t *testing.T) {
	f := newFixture(t)
	f.store.On("Delete", mock.Anything, subID).Return(submission.ErrSubmissionNotFound).Once()

	assert.ErrorIs(t, f.svc.Delete(context.Background(), subID), submission.ErrSubmissionNotFound)
	f.search.AssertNotCalled(t, "DeleteSubmission", mock.Anything, mock.Anything)
}

func TestService_Analytics_WithoutSearch(t *testing.T) {
	svc := NewService(Dependencies{Store: new(MockStore)}, logger.NewTestLogger(t))
	_, err := svc.Analytics(context.Background(), submission.AnalyticsFilter{})
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

// ==========================
// Pipeline
// ==========================

func TestComputePipeline(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sentAt := func(days int) *time.Time {
		ts := base.Add(time.Duration(days) * 24 * time.Hour)
		return &ts
	}
	sub := func(status models.SubmissionStatus, budget string, sent *time.Time) models.Submission {
		return models.Submission{
			FormData:       models.FormData{Budget: budget},
			Status:         status,
			SubmittedAt:    base,
			ProposalSentAt: sent,
		}
	}

	p := ComputePipeline([]models.Submission{
		sub(models.StatusNew, "10000", nil),
		sub(models.StatusInProgress, "20000", nil),
		sub(models.StatusProposalSent, "30000", sentAt(2)),
		sub(models.StatusProposalSent, "€ 40.000", sentAt(5)),
		sub(models.StatusClosed, "50000", sentAt(1)),
	})

	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 1, p.ByStatus[models.StatusNew])
	assert.Equal(t, 2, p.ByStatus[models.StatusProposalSent])
	assert.Equal(t, 33.3, p.ConversionRate)
	assert.Equal(t, 3.5, p.AvgDaysToProposal)
	assert.Equal(t, int64(90000), p.PipelineValue)
}

func TestComputePipeline_Empty(t *testing.T) {
	p := ComputePipeline(nil)
	assert.Zero(t, p.Total)
	assert.Zero(t, p.ConversionRate)
	assert.Zero(t, p.AvgDaysToProposal)
	assert.Len(t, p.ByStatus, len(models.AllStatuses))
}
