// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every job worker handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Workers tracks the job workers opened against one Zeebe client.
type Workers struct {
	client  zbc.Client
	logger  logger.Logger
	workers map[string]worker.JobWorker
}

func NewWorkers(client zbc.Client, log logger.Logger) *Workers {
	return &Workers{
		client:  client,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// Start opens a job worker for taskType unless it is disabled in wcfg.
func (w *Workers) Start(taskType string, wcfg config.WorkerConfig, handler JobHandler) bool {
	if !wcfg.Enabled {
		w.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	maxJobs := wcfg.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = 5
	}
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	w.workers[taskType] = w.client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler.Handle)).
		MaxJobsActive(maxJobs).
		Timeout(timeout).
		Open()

	w.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": maxJobs,
		"timeout_ms":    timeout.Milliseconds(),
	})
	return true
}

// Started lists the task types with an open worker.
func (w *Workers) Started() []string {
	out := make([]string, 0, len(w.workers))
	for taskType := range w.workers {
		out = append(out, taskType)
	}
	return out
}

// Close stops every worker; the Zeebe client itself is closed by its owner.
func (w *Workers) Close() {
	for taskType, jw := range w.workers {
		jw.Close()
		jw.AwaitClose()
		w.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
}

// Instrument records the processing time of every job.
func Instrument(taskType string, handle worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		handle(client, job)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	}
}
