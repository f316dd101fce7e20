// internal/workers/communication/send-confirmation/models.go
package sendconfirmation

type Input struct {
	SubmissionID string `json:"submissionId"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "disabled"
	MessageID      string `json:"messageId,omitempty"`
	SentAt         string `json:"sentAt"` // ISO 8601
}
