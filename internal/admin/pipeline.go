// internal/admin/pipeline.go
package admin

import (
	"context"
	"math"

	"tulipai-funnel/internal/models"
)

// Pipeline summarizes the sales funnel as shown on the dashboard header.
type Pipeline struct {
	Total             int                             `json:"total"`
	ByStatus          map[models.SubmissionStatus]int `json:"byStatus"`
	ConversionRate    float64                         `json:"conversionRate"` // percent
	AvgDaysToProposal float64                         `json:"avgDaysToProposal"`
	PipelineValue     int64                           `json:"pipelineValue"`
}

func (s *Service) Pipeline(ctx context.Context) (*Pipeline, error) {
	subs, err := s.deps.Store.List(ctx, models.SubmissionFilter{})
	if err != nil {
		return nil, err
	}
	return ComputePipeline(subs), nil
}

// ComputePipeline derives the pipeline figures:
// conversion is closed / (proposal_sent + closed), the proposal delay is
// averaged over proposal_sent submissions carrying both timestamps, and the
// pipeline value sums the budgets of in_progress and proposal_sent.
func ComputePipeline(subs []models.Submission) *Pipeline {
	p := &Pipeline{
		Total:    len(subs),
		ByStatus: make(map[models.SubmissionStatus]int, len(models.AllStatuses)),
	}
	for _, st := range models.AllStatuses {
		p.ByStatus[st] = 0
	}

	var (
		delayDays float64
		delayed   int
	)
	for _, sub := range subs {
		p.ByStatus[sub.Status]++

		switch sub.Status {
		case models.StatusInProgress:
			p.PipelineValue += sub.BudgetValue()
		case models.StatusProposalSent:
			p.PipelineValue += sub.BudgetValue()
			if sub.ProposalSentAt != nil && !sub.SubmittedAt.IsZero() {
				delayDays += sub.ProposalSentAt.Sub(sub.SubmittedAt).Hours() / 24
				delayed++
			}
		}
	}

	if decided := p.ByStatus[models.StatusProposalSent] + p.ByStatus[models.StatusClosed]; decided > 0 {
		p.ConversionRate = round1(float64(p.ByStatus[models.StatusClosed]) / float64(decided) * 100)
	}
	if delayed > 0 {
		p.AvgDaysToProposal = round1(delayDays / float64(delayed))
	}
	return p
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
