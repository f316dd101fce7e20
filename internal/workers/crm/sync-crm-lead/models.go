// internal/workers/crm/sync-crm-lead/models.go
package synccrmlead

import (
	"fmt"
	"strings"

	"tulipai-funnel/internal/common/zoho"
	"tulipai-funnel/internal/models"
)

type Input struct {
	SubmissionID string `json:"submissionId"`
}

type Output struct {
	SubmissionID string `json:"submissionId"`
	CRMLeadID    string `json:"crmLeadId,omitempty"`
	CRMAction    string `json:"crmAction"`
	SyncedAt     string `json:"syncedAt,omitempty"` // ISO 8601
}

// CRM actions
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDisabled = "disabled"
)

// splitName splits a full name at its last space. Zoho requires Last_Name, so
// a single word is used as the last name.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func leadDescription(sub models.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Submission %s\n", sub.ID)
	fmt.Fprintf(&b, "Team size: %s\n", sub.TeamSize)
	fmt.Fprintf(&b, "AI stage: %s\n", sub.AiStage)
	fmt.Fprintf(&b, "Timeline: %s\n", sub.Timeline)
	if len(sub.Challenges) > 0 {
		fmt.Fprintf(&b, "Challenges: %s\n", strings.Join(sub.Challenges, ", "))
	}
	if len(sub.Solutions) > 0 {
		fmt.Fprintf(&b, "Solutions of interest: %s\n", strings.Join(sub.Solutions, ", "))
	}
	if sub.AiUseCase != "" {
		fmt.Fprintf(&b, "Use case: %s\n", sub.AiUseCase)
	}
	return strings.TrimSpace(b.String())
}

// LeadFromSubmission maps a submission onto the Zoho Leads module.
func LeadFromSubmission(sub models.Submission, config *Config) *zoho.Lead {
	first, last := splitName(sub.Name)
	if last == "" {
		last = sub.CompanyName
	}
	return &zoho.Lead{
		Email:       sub.Email,
		FirstName:   first,
		LastName:    last,
		Company:     sub.CompanyName,
		Designation: sub.Role,
		Phone:       sub.Phone,
		Website:     sub.Website,
		Industry:    strings.Join(sub.Industries, ", "),
		Source:      config.LeadSource,
		Status:      config.LeadStatus,
		Description: leadDescription(sub),
		Budget:      sub.BudgetValue(),
	}
}
