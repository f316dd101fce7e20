// internal/models/notification.go
package models

type Notification struct {
	ID           string                 `json:"id"`
	SubmissionID string                 `json:"submissionId"`
	Recipient    string                 `json:"recipient"`
	Type         string                 `json:"type"`    // "confirmation", "quote", "sales_alert"
	Channel      string                 `json:"channel"` // "email", "sms"
	Status       string                 `json:"status"`  // "sent", "failed", "disabled"
	MessageID    string                 `json:"messageId,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	SentAt       string                 `json:"sentAt"`
}

// QuoteEmail is what the admin sends to a lead once a proposal is ready.
type QuoteEmail struct {
	CompanyName     string `json:"companyName"`
	ContactName     string `json:"contactName"`
	ContactEmail    string `json:"contactEmail"`
	QuoteContent    string `json:"quoteContent"`
	SubmissionID    string `json:"submissionId"`
	SubjectOverride string `json:"subjectOverride,omitempty"`
}
