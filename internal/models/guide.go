// internal/models/guide.go
package models

// Guide is the help text and clickable suggestions shown beside a step.
type Guide struct {
	Text        string   `json:"guideText"`
	Suggestions []string `json:"suggestions"`
}

// CompanyInsights is the result of summarizing a company website.
type CompanyInsights struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
}

// Draft is the resumable snapshot of a wizard session.
type Draft struct {
	FormData    FormData `json:"formData"`
	CurrentStep Step     `json:"currentStep"`
}

// FormErrors maps FormData field names to a validation message.
type FormErrors map[string]string

func (e FormErrors) HasErrors() bool {
	return len(e) > 0
}
