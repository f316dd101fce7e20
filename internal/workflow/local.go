package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/observability"
	"tulipai-funnel/internal/models"
)

// Task is one post-submission step, run with the submission id.
type Task struct {
	Type string
	Run  func(ctx context.Context, submissionID string) error
}

type LocalConfig struct {
	Timeout    time.Duration // per attempt
	RetryDelay time.Duration // doubled on every retry
}

func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Timeout:    3 * time.Minute,
		RetryDelay: 2 * time.Second,
	}
}

// LocalRunner runs the intake tasks in-process, concurrently, with the same
// retry budget the job workers get from the engine.
type LocalRunner struct {
	config *LocalConfig
	tasks  []Task
	obs    *observability.Observability
	logger logger.Logger
	wg     sync.WaitGroup
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewLocalRunner(config *LocalConfig, tasks []Task, obs *observability.Observability, log logger.Logger) *LocalRunner {
	if config == nil {
		config = DefaultLocalConfig()
	}
	return &LocalRunner{
		config: config,
		tasks:  tasks,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "workflow", "mode": "local"}),
		sleep:  sleepCtx,
	}
}

// SubmissionCreated runs every task for the submission and waits for them.
func (r *LocalRunner) SubmissionCreated(ctx context.Context, sub *models.Submission) {
	if err := r.Run(ctx, sub.ID); err != nil {
		r.logger.Error("intake tasks failed", map[string]interface{}{
			"error":        err,
			"submissionId": sub.ID,
		})
	}
}

// Run executes all tasks and joins their errors. A failing task does not stop
// the others.
func (r *LocalRunner) Run(ctx context.Context, submissionID string) error {
	r.wg.Add(1)
	defer r.wg.Done()

	var wg sync.WaitGroup
	errs := make([]error, len(r.tasks))
	for i, task := range r.tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			errs[i] = r.runTask(ctx, task, submissionID)
		}(i, task)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Wait blocks until in-flight runs are done.
func (r *LocalRunner) Wait() {
	r.wg.Wait()
}

func (r *LocalRunner) runTask(ctx context.Context, task Task, submissionID string) error {
	var err error
	delay := r.config.RetryDelay
	for attempt := 0; ; attempt++ {
		err = r.obs.Track(ctx, task.Type, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
			defer cancel()
			return task.Run(ctx, submissionID)
		})
		if err == nil {
			r.logger.Info("task completed", map[string]interface{}{
				"taskType":     task.Type,
				"submissionId": submissionID,
				"attempt":      attempt + 1,
			})
			return nil
		}

		stdErr := apperrors.AsStandardError(err)
		if !stdErr.Retryable || attempt >= apperrors.GetRetryCount(stdErr.Code) {
			break
		}
		r.logger.Warn("task failed, retrying", map[string]interface{}{
			"taskType":     task.Type,
			"submissionId": submissionID,
			"errorCode":    string(stdErr.Code),
			"attempt":      attempt + 1,
		})
		if serr := r.sleep(ctx, delay); serr != nil {
			break
		}
		delay *= 2
	}
	return fmt.Errorf("%s: %w", task.Type, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
