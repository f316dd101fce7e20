package models

import "time"

// Session tracks one browser's wizard session on the server.
type Session struct {
	ID           string    `json:"id"`
	DraftKey     string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// IsExpired checks if session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch records activity and pushes the expiry out by ttl.
func (s *Session) Touch(ttl time.Duration) {
	s.LastActivity = time.Now()
	s.ExpiresAt = s.LastActivity.Add(ttl)
}

// Page is where a session currently is: the entry page or inside the wizard.
type Page string

const (
	PageLanding Page = "landing"
	PageFunnel  Page = "funnel"
)

// GuideState is the guide panel as the client should render it.
type GuideState struct {
	Text        string   `json:"guideText"`
	Suggestions []string `json:"suggestions"`
	Loading     bool     `json:"loading"`
}

// WizardState is a point-in-time copy of a wizard controller.
type WizardState struct {
	Page        Page        `json:"page"`
	Step        Step        `json:"step"`
	StepName    string      `json:"stepName"`
	FormData    FormData    `json:"formData"`
	Errors      FormErrors  `json:"errors"`
	Guide       GuideState  `json:"guide"`
	Summarizing bool        `json:"summarizing"`
	Submission  *Submission `json:"submission,omitempty"`
}
