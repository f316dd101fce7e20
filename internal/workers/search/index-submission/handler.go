// internal/workers/search/index-submission/handler.go
package indexsubmission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/submission"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "index-submission"

var (
	ErrMissingSubmissionID = errors.New("MISSING_SUBMISSION_ID")
)

type SubmissionGetter interface {
	Get(ctx context.Context, id string) (*models.Submission, error)
}

type Indexer interface {
	IndexSubmission(ctx context.Context, sub models.Submission) error
}

type Handler struct {
	config *Config
	store  SubmissionGetter
	index  Indexer
	logger logger.Logger
	errors *apperrors.ErrorHandler
	now    func() time.Time
}

// NewHandler builds the worker. index may be nil when Elasticsearch is
// disabled; jobs then complete with indexed=false.
func NewHandler(config *Config, store SubmissionGetter, index Indexer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		index:  index,
		logger: log,
		errors: apperrors.NewErrorHandler(log),
		now:    time.Now,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SubmissionID == "" {
		return nil, apperrors.NewValidationError(ErrMissingSubmissionID.Error())
	}

	sub, err := h.store.Get(ctx, input.SubmissionID)
	if err != nil {
		if errors.Is(err, submission.ErrSubmissionNotFound) {
			return nil, apperrors.NewSubmissionNotFoundError(input.SubmissionID)
		}
		return nil, apperrors.NewQueryExecutionFailedError("get submission", err)
	}

	if h.index == nil {
		h.logger.Debug("search index disabled", map[string]interface{}{
			"submissionId": sub.ID,
		})
		return &Output{SubmissionID: sub.ID, Indexed: false}, nil
	}

	if err := h.index.IndexSubmission(ctx, *sub); err != nil {
		return nil, apperrors.NewSearchIndexFailedError(err)
	}

	return &Output{
		SubmissionID: sub.ID,
		Indexed:      true,
		IndexedAt:    h.now().UTC().Format(time.RFC3339),
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
