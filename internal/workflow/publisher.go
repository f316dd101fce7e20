// Package workflow hands created submissions to the post-submission process,
// either on Zeebe or in-process when no broker is configured.
package workflow

import (
	"context"
	"time"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/models"
)

const DefaultProcessID = "submission-intake"

// Variables are the process variables every instance starts with. Workers
// load the full submission by id.
type Variables struct {
	SubmissionID string `json:"submissionId"`
	CompanyName  string `json:"companyName"`
	Email        string `json:"email"`
	Budget       int64  `json:"budget"`
	SubmittedAt  string `json:"submittedAt"`
}

func NewVariables(sub *models.Submission) Variables {
	return Variables{
		SubmissionID: sub.ID,
		CompanyName:  sub.CompanyName,
		Email:        sub.Email,
		Budget:       sub.BudgetValue(),
		SubmittedAt:  sub.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

// ProcessStarter is implemented by camunda.Client.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// Publisher starts one process instance per created submission.
type Publisher struct {
	starter   ProcessStarter
	processID string
	timeout   time.Duration
	logger    logger.Logger
}

func NewPublisher(starter ProcessStarter, processID string, timeout time.Duration, log logger.Logger) *Publisher {
	if processID == "" {
		processID = DefaultProcessID
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Publisher{
		starter:   starter,
		processID: processID,
		timeout:   timeout,
		logger:    log.WithFields(map[string]interface{}{"component": "workflow", "processId": processID}),
	}
}

// SubmissionCreated starts the intake process. The submission is already
// stored, so a failure here is logged and counted but not returned.
func (p *Publisher) SubmissionCreated(ctx context.Context, sub *models.Submission) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	key, err := p.starter.StartProcess(ctx, p.processID, NewVariables(sub))
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("workflow").Inc()
		p.logger.Error("failed to start intake process", map[string]interface{}{
			"error":        err,
			"submissionId": sub.ID,
		})
		return
	}
	p.logger.Info("intake process started", map[string]interface{}{
		"submissionId":       sub.ID,
		"processInstanceKey": key,
	})
}
