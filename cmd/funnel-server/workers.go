// cmd/funnel-server/workers.go
package main

import (
	"context"

	"tulipai-funnel/internal/admin"
	"tulipai-funnel/internal/common/camunda"
	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/zoho"
	"tulipai-funnel/internal/notification"
	"tulipai-funnel/internal/submission"
	"tulipai-funnel/internal/workflow"

	// Post-submission workers (5)
	ns "tulipai-funnel/internal/workers/communication/notify-sales"
	sc "tulipai-funnel/internal/workers/communication/send-confirmation"
	scl "tulipai-funnel/internal/workers/crm/sync-crm-lead"
	gp "tulipai-funnel/internal/workers/proposal/generate-proposal"
	is "tulipai-funnel/internal/workers/search/index-submission"
)

type handlers struct {
	index    *is.Handler
	crm      *scl.Handler
	confirm  *sc.Handler
	sales    *ns.Handler
	proposal *gp.Handler
}

// newHandlers builds every worker handler. index and crm may be nil; the
// workers then report the step as skipped.
func newHandlers(cfg *config.Config, repo *submission.Repository, index *submission.Index, crm *zoho.CRMClient,
	notifier *notification.Notifier, adminSvc *admin.Service, log logger.Logger) *handlers {

	var indexer is.Indexer
	if index != nil {
		indexer = index
	}
	var leads scl.LeadClient
	if crm != nil {
		leads = crm
	}

	return &handlers{
		index:    is.NewHandler(is.LoadConfig(cfg), repo, indexer, log),
		crm:      scl.NewHandler(scl.LoadConfig(cfg), repo, leads, log),
		confirm:  sc.NewHandler(sc.LoadConfig(cfg), repo, notifier, log),
		sales:    ns.NewHandler(ns.LoadConfig(cfg), repo, notifier, log),
		proposal: gp.NewHandler(gp.LoadConfig(cfg), adminSvc, log),
	}
}

// start opens a Zeebe job worker per enabled task type.
func (h *handlers) start(w *camunda.Workers, cfg *config.Config) {
	w.Start(is.TaskType, config.GetWorkerConfig(cfg, is.TaskType), h.index)
	w.Start(scl.TaskType, config.GetWorkerConfig(cfg, scl.TaskType), h.crm)
	w.Start(sc.TaskType, config.GetWorkerConfig(cfg, sc.TaskType), h.confirm)
	w.Start(ns.TaskType, config.GetWorkerConfig(cfg, ns.TaskType), h.sales)
	w.Start(gp.TaskType, config.GetWorkerConfig(cfg, gp.TaskType), h.proposal)
}

// tasks adapts the enabled handlers for the in-process runner.
func (h *handlers) tasks(cfg *config.Config) []workflow.Task {
	all := []workflow.Task{
		{Type: is.TaskType, Run: func(ctx context.Context, id string) error {
			_, err := h.index.Execute(ctx, &is.Input{SubmissionID: id})
			return err
		}},
		{Type: scl.TaskType, Run: func(ctx context.Context, id string) error {
			_, err := h.crm.Execute(ctx, &scl.Input{SubmissionID: id})
			return err
		}},
		{Type: sc.TaskType, Run: func(ctx context.Context, id string) error {
			_, err := h.confirm.Execute(ctx, &sc.Input{SubmissionID: id})
			return err
		}},
		{Type: ns.TaskType, Run: func(ctx context.Context, id string) error {
			_, err := h.sales.Execute(ctx, &ns.Input{SubmissionID: id})
			return err
		}},
		{Type: gp.TaskType, Run: func(ctx context.Context, id string) error {
			_, err := h.proposal.Execute(ctx, &gp.Input{SubmissionID: id})
			return err
		}},
	}

	out := make([]workflow.Task, 0, len(all))
	for _, t := range all {
		if config.IsWorkerEnabled(cfg, t.Type) {
			out = append(out, t)
		}
	}
	return out
}
