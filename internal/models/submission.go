// internal/models/submission.go
package models

import (
	"strconv"
	"strings"
	"time"
)

type SubmissionStatus string

const (
	StatusNew          SubmissionStatus = "new"
	StatusInProgress   SubmissionStatus = "in_progress"
	StatusProposalSent SubmissionStatus = "proposal_sent"
	StatusClosed       SubmissionStatus = "closed"
)

var AllStatuses = []SubmissionStatus{StatusNew, StatusInProgress, StatusProposalSent, StatusClosed}

func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusProposalSent, StatusClosed:
		return true
	}
	return false
}

// Submission is a finalized FormData moving through the sales pipeline.
type Submission struct {
	FormData
	ID             string           `json:"id"`
	SubmittedAt    time.Time        `json:"submittedAt"`
	Status         SubmissionStatus `json:"status"`
	ProposalSentAt *time.Time       `json:"proposalSentAt,omitempty"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// BudgetValue returns the numeric budget, ignoring any non-digit characters.
func (s Submission) BudgetValue() int64 {
	return ParseBudget(s.Budget)
}

// ParseBudget strips everything but digits and parses the rest. Empty yields 0.
func ParseBudget(raw string) int64 {
	digits := DigitsOnly(raw)
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SubmissionUpdate is a partial admin-side update of a submission.
type SubmissionUpdate struct {
	Status         *SubmissionStatus `json:"status,omitempty"`
	GeneratedQuote *string           `json:"generatedQuote,omitempty"`
	IsQuoteLoading *bool             `json:"isQuoteLoading,omitempty"`
	InternalNotes  *string           `json:"internalNotes,omitempty"`
	ProposalSentAt *time.Time        `json:"proposalSentAt,omitempty"`
}

// SubmissionFilter narrows an admin listing.
type SubmissionFilter struct {
	Status    SubmissionStatus
	Query     string
	SortKey   string
	Ascending bool
	Limit     int
	Offset    int
}
