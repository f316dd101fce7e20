// internal/workers/communication/send-confirmation/handler_test.go
package sendconfirmation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/notification"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
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

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

// ==========================
// Test Helpers
// ==========================

func testSubmission() *models.Submission {
	return &models.Submission{
		ID:       "sub-1",
		FormData: models.FormData{Name: "Ada", Email: "ada@acme.com", CompanyName: "Acme"},
		Status:   models.StatusNew,
	}
}

func createNotifier(t *testing.T, sesClient *MockSESService) *notification.Notifier {
	cfg := notification.DefaultConfig()
	cfg.EmailEnabled = sesClient != nil
	if sesClient == nil {
		return notification.NewNotifier(cfg, nil, nil, logger.NewTestLogger(t))
	}
	return notification.NewNotifier(cfg, sesClient, nil, logger.NewTestLogger(t))
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "submission-intake",
		ElementId:          "Task_SendConfirmation",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name       string
		ses        *MockSESService
		wantStatus string
		wantMsgID  string
	}{
		{
			name: "confirmation sent",
			ses: &MockSESService{
				SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
					assert.Equal(t, []string{"ada@acme.com"}, params.Destination.ToAddresses)
					assert.Contains(t, aws.ToString(params.Message.Body.Text.Data), "Hi Ada")
					return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
				},
			},
			wantStatus: notification.StatusSent,
			wantMsgID:  "msg-1",
		},
		{
			name:       "email disabled",
			ses:        nil,
			wantStatus: notification.StatusDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("Get", mock.Anything, "sub-1").Return(testSubmission(), nil)
			h := NewHandler(DefaultConfig(), store, createNotifier(t, tt.ses), logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{SubmissionID: "sub-1"})

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantMsgID, out.MessageID)
			assert.NotEmpty(t, out.NotificationID)
			assert.NotEmpty(t, out.SentAt)
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	failingSES := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	tests := []struct {
		name      string
		sub       *models.Submission
		wantCode  apperrors.ErrorCode
		retryable bool
	}{
		{
			name:      "ses failure is retryable",
			sub:       testSubmission(),
			wantCode:  apperrors.ErrCodeNotificationSendFailed,
			retryable: true,
		},
		{
			name: "missing email is not retried",
			sub: func() *models.Submission {
				s := testSubmission()
				s.Email = ""
				return s
			}(),
			wantCode: apperrors.ErrCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("Get", mock.Anything, "sub-1").Return(tt.sub, nil)
			h := NewHandler(DefaultConfig(), store, createNotifier(t, failingSES), logger.NewTestLogger(t))

			_, err := h.Execute(context.Background(), &Input{SubmissionID: "sub-1"})

			require.Error(t, err)
			stdErr := apperrors.AsStandardError(err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestJobVariables_ParseInput(t *testing.T) {
	job := createMockJob(7, map[string]interface{}{
		"submissionId": "sub-1",
		"companyName":  "Acme",
		"budget":       60000,
	})

	var input Input
	require.NoError(t, json.Unmarshal([]byte(job.Variables), &input))
	assert.Equal(t, "sub-1", input.SubmissionID)
	assert.Equal(t, int64(70), job.ProcessInstanceKey)
}
