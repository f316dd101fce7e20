package workflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/observability"
	"tulipai-funnel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockStarter struct {
	mock.Mock
}

func (m *MockStarter) StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error) {
	args := m.Called(ctx, processID, variables)
	return args.Get(0).(int64), args.Error(1)
}

func testSubmission() *models.Submission {
	return &models.Submission{
		ID:          "sub-1",
		FormData:    models.FormData{CompanyName: "Acme", Email: "ada@acme.com", Budget: "EUR 60.000"},
		SubmittedAt: time.Date(2025, 3, 14, 10, 30, 0, 0, time.FixedZone("CET", 3600)),
		Status:      models.StatusNew,
	}
}

// ==========================
// Publisher Tests
// ==========================

func TestNewVariables(t *testing.T) {
	v := NewVariables(testSubmission())

	assert.Equal(t, Variables{
		SubmissionID: "sub-1",
		CompanyName:  "Acme",
		Email:        "ada@acme.com",
		Budget:       60000,
		SubmittedAt:  "2025-03-14T09:30:00Z",
	}, v)
}

func TestPublisher_SubmissionCreated(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "instance started"},
		{name: "broker unavailable is swallowed", err: errors.New("unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			starter := new(MockStarter)
			starter.On("StartProcess", mock.Anything, DefaultProcessID, NewVariables(testSubmission())).
				Return(int64(2251799813685249), tt.err).Once()

			p := NewPublisher(starter, "", time.Second, logger.NewTestLogger(t))
			p.SubmissionCreated(context.Background(), testSubmission())

			starter.AssertExpectations(t)
		})
	}
}

// ==========================
// LocalRunner Tests
// ==========================

func newTestRunner(t *testing.T, tasks ...Task) *LocalRunner {
	r := NewLocalRunner(&LocalConfig{Timeout: time.Second, RetryDelay: time.Millisecond},
		tasks, observability.Noop(), logger.NewTestLogger(t))
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func countingTask(taskType string, calls *int32, errs ...error) Task {
	return Task{
		Type: taskType,
		Run: func(_ context.Context, submissionID string) error {
			n := atomic.AddInt32(calls, 1)
			if int(n) <= len(errs) {
				return errs[n-1]
			}
			return nil
		},
	}
}

func TestLocalRunner_Run(t *testing.T) {
	var indexCalls, mailCalls int32
	r := newTestRunner(t,
		countingTask("index-submission", &indexCalls),
		countingTask("send-confirmation", &mailCalls),
	)

	require.NoError(t, r.Run(context.Background(), "sub-1"))
	assert.Equal(t, int32(1), indexCalls)
	assert.Equal(t, int32(1), mailCalls)
}

func TestLocalRunner_RetriesRetryableErrors(t *testing.T) {
	var calls int32
	transient := apperrors.NewSearchIndexFailedError(errors.New("503"))
	r := newTestRunner(t, countingTask("index-submission", &calls, transient, transient))

	require.NoError(t, r.Run(context.Background(), "sub-1"))
	assert.Equal(t, int32(3), calls)
}

func TestLocalRunner_Failures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int32
	}{
		{
			name:      "non-retryable error runs once",
			err:       apperrors.NewSubmissionNotFoundError("sub-1"),
			wantCalls: 1,
		},
		{
			name:      "retry budget follows the error code",
			err:       apperrors.NewLLMTimeoutError(),
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var failing, ok int32
			errs := []error{tt.err, tt.err, tt.err, tt.err, tt.err}
			r := newTestRunner(t,
				countingTask("generate-proposal", &failing, errs...),
				countingTask("notify-sales", &ok),
			)

			err := r.Run(context.Background(), "sub-1")

			require.Error(t, err)
			assert.Contains(t, err.Error(), "generate-proposal")
			assert.Equal(t, tt.wantCalls, failing)
			assert.Equal(t, int32(1), ok, "other tasks still run")
		})
	}
}

func TestLocalRunner_SubmissionCreatedLogsFailures(t *testing.T) {
	var calls int32
	r := newTestRunner(t, countingTask("sync-crm-lead", &calls, apperrors.NewValidationError("bad")))

	r.SubmissionCreated(context.Background(), testSubmission())
	r.Wait()

	assert.Equal(t, int32(1), calls)
}
