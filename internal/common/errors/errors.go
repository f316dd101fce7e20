// Package errors provides the structured error type shared by the HTTP API,
// the funnel collaborators and the workflow job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidStep      ErrorCode = "INVALID_STEP"
	ErrCodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	ErrCodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"

	ErrCodeDraftPersistenceFailed ErrorCode = "DRAFT_PERSISTENCE_FAILED"

	ErrCodeGuideFetchFailed      ErrorCode = "GUIDE_FETCH_FAILED"
	ErrCodeWebsiteFetchFailed    ErrorCode = "WEBSITE_FETCH_FAILED"
	ErrCodeLLMTimeout            ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMGenerationFailed   ErrorCode = "LLM_GENERATION_FAILED"
	ErrCodeQuoteGenerationFailed ErrorCode = "QUOTE_GENERATION_FAILED"

	ErrCodeSubmissionCreateFailed ErrorCode = "SUBMISSION_CREATE_FAILED"
	ErrCodeSubmissionNotFound     ErrorCode = "SUBMISSION_NOT_FOUND"
	ErrCodePaymentFailed          ErrorCode = "PAYMENT_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchIndexFailed        ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeCRMSyncFailed          ErrorCode = "CRM_SYNC_FAILED"
	ErrCodeExternalService        ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                ErrorCode = "TIMEOUT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is thrown to the workflow engine when a job cannot be completed.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the variables attached to a failed or thrown job.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Request validation failed", details, false)
}

func NewInvalidStepError(step int) *StandardError {
	return newError(ErrCodeInvalidStep, "Unknown wizard step", fmt.Sprintf("step %d", step), false)
}

func NewInvalidStatusError(status string) *StandardError {
	return newError(ErrCodeInvalidStatus, "Unknown submission status", status, false)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Funnel session not found", sessionID, false)
}

func NewUnauthorizedError(details string) *StandardError {
	return newError(ErrCodeUnauthorized, "Unauthorized", details, false)
}

func NewDraftPersistenceError(op string, err error) *StandardError {
	return newError(ErrCodeDraftPersistenceFailed, "Draft "+op+" failed", errDetails(err), true)
}

func NewGuideFetchFailedError(err error) *StandardError {
	return newError(ErrCodeGuideFetchFailed, "Guide content unavailable", errDetails(err), true)
}

func NewWebsiteFetchFailedError(url string, err error) *StandardError {
	return newError(ErrCodeWebsiteFetchFailed, "Website could not be fetched", errDetails(err), true).
		WithMetadata("url", url)
}

func NewLLMTimeoutError() *StandardError {
	return newError(ErrCodeLLMTimeout, "Language model request timed out", "", true)
}

func NewLLMGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeLLMGenerationFailed, "Language model request failed", errDetails(err), true)
}

func NewQuoteGenerationFailedError(submissionID string, err error) *StandardError {
	return newError(ErrCodeQuoteGenerationFailed, "Proposal generation failed", errDetails(err), true).
		WithMetadata("submissionId", submissionID)
}

func NewSubmissionCreateFailedError(err error) *StandardError {
	return newError(ErrCodeSubmissionCreateFailed, "Your request could not be submitted", errDetails(err), true)
}

func NewSubmissionNotFoundError(id string) *StandardError {
	return newError(ErrCodeSubmissionNotFound, "Submission not found", id, false)
}

func NewPaymentFailedError(err error) *StandardError {
	return newError(ErrCodePaymentFailed, "Payment was not completed", errDetails(err), false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection failed", errDetails(err), true)
}

func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Query execution failed", errDetails(err), true).
		WithMetadata("query", query)
}

func NewSearchIndexFailedError(err error) *StandardError {
	return newError(ErrCodeSearchIndexFailed, "Search index update failed", errDetails(err), true)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", errDetails(err), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed", errDetails(err), true).
		WithMetadata("channel", channel)
}

func NewCRMSyncFailedError(err error) *StandardError {
	return newError(ErrCodeCRMSyncFailed, "CRM synchronisation failed", errDetails(err), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service %s failed", service), errDetails(err), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Request to %s timed out", service), errDetails(err), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", errDetails(err), false)
}

// ==========================
// 4. Conversion
// ==========================

// GetRetryCount returns how many times a job failing with code is retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchIndexFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeCRMSyncFailed,
		ErrCodeExternalService:
		return 3
	case ErrCodeLLMGenerationFailed,
		ErrCodeQuoteGenerationFailed,
		ErrCodeTimeout:
		return 2
	case ErrCodeLLMTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError for the workflow engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code to the status the API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidStep, ErrCodeInvalidStatus:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeSessionNotFound, ErrCodeSubmissionNotFound:
		return http.StatusNotFound
	case ErrCodePaymentFailed:
		return http.StatusPaymentRequired
	case ErrCodeLLMTimeout, ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeGuideFetchFailed, ErrCodeWebsiteFetchFailed, ErrCodeLLMGenerationFailed,
		ErrCodeQuoteGenerationFailed, ErrCodeNotificationSendFailed, ErrCodeCRMSyncFailed,
		ErrCodeExternalService, ErrCodeSearchQueryFailed, ErrCodeSearchIndexFailed:
		return http.StatusBadGateway
	case ErrCodeSubmissionCreateFailed, ErrCodeDatabaseConnectionFailed, ErrCodeQueryExecutionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err into a StandardError, wrapping unknown errors
// as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode reports whether jobs failing with code are retried.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DRAFT"):
		return "DRAFT"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "GUIDE") ||
		strings.Contains(codeStr, "WEBSITE") || strings.Contains(codeStr, "QUOTE"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "SUBMISSION"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "CRM"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
