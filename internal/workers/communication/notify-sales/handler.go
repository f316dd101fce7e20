// internal/workers/communication/notify-sales/handler.go
package notifysales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/notification"
	"tulipai-funnel/internal/submission"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "notify-sales"

var (
	ErrMissingSubmissionID = errors.New("MISSING_SUBMISSION_ID")
)

type SubmissionGetter interface {
	Get(ctx context.Context, id string) (*models.Submission, error)
}

type SalesNotifier interface {
	NotifySales(ctx context.Context, sub models.Submission) ([]models.Notification, error)
}

type Handler struct {
	config   *Config
	store    SubmissionGetter
	notifier SalesNotifier
	logger   logger.Logger
	errors   *apperrors.ErrorHandler
}

func NewHandler(config *Config, store SubmissionGetter, notifier SalesNotifier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		store:    store,
		notifier: notifier,
		logger:   log,
		errors:   apperrors.NewErrorHandler(log),
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

// Execute texts the sales team about a new lead. Alerts go out only for
// budgets at or above the configured threshold. A job fails only when every
// alert failed.
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

	notes, err := h.notifier.NotifySales(ctx, *sub)
	if err != nil {
		return nil, apperrors.NewNotificationSendFailedError(notification.ChannelSMS, err)
	}

	return summarize(notes), nil
}

func summarize(notes []models.Notification) *Output {
	out := &Output{SalesAlertStatus: notification.StatusSent}
	for _, n := range notes {
		switch n.Status {
		case notification.StatusSent:
			out.AlertsSent++
		case notification.StatusFailed:
			out.AlertsFailed++
		case notification.StatusSkipped, notification.StatusDisabled:
			out.SalesAlertStatus = n.Status
		}
	}
	if out.AlertsFailed > 0 {
		out.SalesAlertStatus = StatusPartial
	}
	return out
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
