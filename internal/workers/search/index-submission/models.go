// internal/workers/search/index-submission/models.go
package indexsubmission

type Input struct {
	SubmissionID string `json:"submissionId"`
}

type Output struct {
	SubmissionID string `json:"submissionId"`
	Indexed      bool   `json:"indexed"`
	IndexedAt    string `json:"indexedAt,omitempty"` // ISO 8601
}
