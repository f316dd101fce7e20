// internal/workers/crm/sync-crm-lead/handler.go
package synccrmlead

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/common/zoho"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/submission"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "sync-crm-lead"

var (
	ErrMissingSubmissionID = errors.New("MISSING_SUBMISSION_ID")
)

type SubmissionGetter interface {
	Get(ctx context.Context, id string) (*models.Submission, error)
}

// LeadClient is the subset of the Zoho CRM client the worker uses.
type LeadClient interface {
	SearchLeadsByEmail(ctx context.Context, email string) ([]zoho.Lead, error)
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
	UpdateLead(ctx context.Context, leadID string, lead *zoho.Lead) error
}

type Handler struct {
	config *Config
	store  SubmissionGetter
	crm    LeadClient
	logger logger.Logger
	errors *apperrors.ErrorHandler
	now    func() time.Time
}

// NewHandler builds the worker. crm may be nil when the Zoho integration is
// disabled.
func NewHandler(config *Config, store SubmissionGetter, crm LeadClient, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		crm:    crm,
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

// Execute creates the lead in Zoho, or updates it when a lead with the same
// email already exists.
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

	if h.crm == nil {
		return &Output{SubmissionID: sub.ID, CRMAction: ActionDisabled}, nil
	}

	lead := LeadFromSubmission(*sub, h.config)

	existing, err := h.crm.SearchLeadsByEmail(ctx, sub.Email)
	if err != nil {
		return nil, apperrors.NewCRMSyncFailedError(err)
	}

	output := &Output{SubmissionID: sub.ID}
	if len(existing) > 0 {
		// Sales may already be working the lead; its status is left alone.
		lead.Status = ""
		if err := h.crm.UpdateLead(ctx, existing[0].ID, lead); err != nil {
			return nil, apperrors.NewCRMSyncFailedError(err)
		}
		output.CRMLeadID = existing[0].ID
		output.CRMAction = ActionUpdated
	} else {
		id, err := h.crm.CreateLead(ctx, lead)
		if err != nil {
			return nil, apperrors.NewCRMSyncFailedError(err)
		}
		output.CRMLeadID = id
		output.CRMAction = ActionCreated
	}
	output.SyncedAt = h.now().UTC().Format(time.RFC3339)

	h.logger.Info("lead synced", map[string]interface{}{
		"submissionId": sub.ID,
		"leadId":       output.CRMLeadID,
		"action":       output.CRMAction,
	})
	return output, nil
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
