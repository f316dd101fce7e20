// internal/workers/proposal/generate-proposal/handler.go
package generateproposal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tulipai-funnel/internal/admin"
	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/proposal"
	"tulipai-funnel/internal/submission"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "generate-proposal"

var (
	ErrMissingSubmissionID = errors.New("MISSING_SUBMISSION_ID")
	ErrProposalFailed      = errors.New("PROPOSAL_GENERATION_FAILED")
)

// QuoteGenerator drafts and stores the proposal for a submission.
type QuoteGenerator interface {
	GenerateQuote(ctx context.Context, id string, force bool) (*models.Submission, error)
}

type Handler struct {
	config    *Config
	generator QuoteGenerator
	logger    logger.Logger
	errors    *apperrors.ErrorHandler
}

func NewHandler(config *Config, generator QuoteGenerator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		generator: generator,
		logger:    log,
		errors:    apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute drafts the proposal. A generation failure is stored on the
// submission by the generator; the job is failed so the engine retries it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SubmissionID == "" {
		return nil, apperrors.NewValidationError(ErrMissingSubmissionID.Error())
	}

	sub, err := h.generator.GenerateQuote(ctx, input.SubmissionID, input.Force)
	if err != nil {
		if errors.Is(err, submission.ErrSubmissionNotFound) {
			return nil, apperrors.NewSubmissionNotFoundError(input.SubmissionID)
		}
		return nil, apperrors.NewQueryExecutionFailedError("generate quote", err)
	}

	if sub.GeneratedQuote == "" || sub.GeneratedQuote == admin.QuoteErrorText {
		return nil, apperrors.NewQuoteGenerationFailedError(sub.ID,
			fmt.Errorf("%w: submission %s", ErrProposalFailed, sub.ID))
	}

	h.logger.Info("proposal ready", map[string]interface{}{
		"submissionId": sub.ID,
		"length":       len(sub.GeneratedQuote),
	})

	return &Output{
		SubmissionID:   sub.ID,
		ProposalReady:  true,
		ProposalFile:   proposal.FileName(sub.CompanyName),
		ProposalLength: len(sub.GeneratedQuote),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.AsStandardError(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
