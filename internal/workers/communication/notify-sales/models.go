// internal/workers/communication/notify-sales/models.go
package notifysales

type Input struct {
	SubmissionID string `json:"submissionId"`
}

type Output struct {
	SalesAlertStatus string `json:"salesAlertStatus"` // "sent", "partial", "skipped", "disabled"
	AlertsSent       int    `json:"alertsSent"`
	AlertsFailed     int    `json:"alertsFailed"`
}

const StatusPartial = "partial"
