// internal/funnel/wizard/controller.go
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/funnel/draft"
	"tulipai-funnel/internal/funnel/suggestion"
	"tulipai-funnel/internal/funnel/validate"
	"tulipai-funnel/internal/models"
)

const (
	GuideFailureText      = "Sorry, there was an issue fetching AI suggestions. Please proceed with the form."
	SummaryFailureText    = "Sorry, I couldn't analyze the website. Please provide a summary manually."
	RegenerateFailureText = "Sorry, I couldn't regenerate the summary. Please try again or fill it in manually."
)

var (
	ErrNotInFunnel         = errors.New("NOT_IN_FUNNEL")
	ErrSubmissionInFlight  = errors.New("SUBMISSION_IN_FLIGHT")
	ErrSummaryInFlight     = errors.New("SUMMARY_IN_FLIGHT")
	ErrNoWebsite           = errors.New("NO_WEBSITE")
	ErrPaymentNotAvailable = errors.New("PAYMENT_NOT_AVAILABLE")
)

// GuideProvider supplies the assistant content shown next to each step.
type GuideProvider interface {
	InitialText(step models.Step) string
	FetchGuide(ctx context.Context, step models.Step, form models.FormData) (models.Guide, error)
	SummarizeWebsite(ctx context.Context, url string) (models.CompanyInsights, error)
}

// SubmissionGateway persists finalized submissions.
type SubmissionGateway interface {
	Create(ctx context.Context, form models.FormData) (*models.Submission, error)
}

// PaymentProvider charges the lead for the proposal.
type PaymentProvider interface {
	Charge(ctx context.Context, form models.FormData) error
}

// SubmissionListener is told about every submission the wizard creates.
type SubmissionListener interface {
	SubmissionCreated(ctx context.Context, sub *models.Submission)
}

type Dependencies struct {
	Guides   GuideProvider
	Drafts   draft.Store
	Gateway  SubmissionGateway
	Payment  PaymentProvider
	Listener SubmissionListener
}

// Controller owns one wizard session: the current step, the form, its errors
// and the guide panel. It is safe for concurrent use. Collaborator calls that
// the user does not wait on run on goroutines tracked by Wait.
type Controller struct {
	config *Config
	deps   Dependencies
	logger logger.Logger

	// bg outlives individual requests; async work derives from it.
	bg context.Context

	mu          sync.Mutex
	page        models.Page
	step        models.Step
	form        models.FormData
	errs        models.FormErrors
	guide       models.GuideState
	guideSeq    uint64
	epoch       uint64
	summarizing bool
	submitting  bool
	submission  *models.Submission

	wg sync.WaitGroup
}

func NewController(config *Config, deps Dependencies, log logger.Logger) *Controller {
	if config == nil {
		config = DefaultConfig()
	}
	return &Controller{
		config: config,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "wizard"}),
		bg:     context.Background(),
		page:   models.PageLanding,
		step:   models.StepBusinessInfo,
		form:   models.NewFormData(),
		errs:   models.FormErrors{},
		guide:  models.GuideState{Suggestions: []string{}},
	}
}

// Start discards any draft and opens the wizard on BusinessInfo with a fresh form.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deps.Drafts.Clear(ctx)
	c.resetLocked(models.NewFormData())
	c.setStepLocked(ctx, "start", models.StepBusinessInfo)
}

// Resume restores the stored draft, or starts over when there is none.
func (c *Controller) Resume(ctx context.Context) {
	d, ok := c.deps.Drafts.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok {
		c.logger.Info("no draft to resume, starting fresh", nil)
		c.deps.Drafts.Clear(ctx)
		c.resetLocked(models.NewFormData())
		c.setStepLocked(ctx, "start", models.StepBusinessInfo)
		return
	}
	c.resetLocked(d.FormData.Sanitized())
	c.setStepLocked(ctx, "resume", d.CurrentStep)
}

// HasDraft reports whether a resumable draft exists.
func (c *Controller) HasDraft(ctx context.Context) bool {
	_, ok := c.deps.Drafts.Load(ctx)
	return ok
}

// Next validates the current step and advances one step when it passes.
// It returns the errors that blocked it, if any. Summary and later steps do
// not advance through Next.
func (c *Controller) Next(ctx context.Context) models.FormErrors {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page != models.PageFunnel || c.step >= models.StepSummary {
		return models.FormErrors{}
	}

	errs := validate.Validate(c.step, c.form)
	if errs.HasErrors() {
		c.errs = errs
		for field := range errs {
			metrics.WizardValidationFailures.WithLabelValues(field).Inc()
		}
		c.logger.Debug("step blocked by validation", map[string]interface{}{
			"step":   c.step.String(),
			"fields": len(errs),
		})
		return copyErrors(errs)
	}

	c.errs = models.FormErrors{}
	c.setStepLocked(ctx, "next", c.step+1)
	return models.FormErrors{}
}

// Back moves one step back; from BusinessInfo it leaves the wizard.
func (c *Controller) Back(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page != models.PageFunnel {
		return
	}
	if c.step == models.StepBusinessInfo {
		c.page = models.PageLanding
		c.guideSeq++
		c.guide.Loading = false
		metrics.WizardTransitions.WithLabelValues("back", "landing").Inc()
		return
	}
	if c.step > models.StepBusinessInfo && c.step <= models.StepConfirmation {
		c.setStepLocked(ctx, "back", c.step-1)
	}
}

// ProceedToPayment jumps to the Payment step without validation.
func (c *Controller) ProceedToPayment(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page != models.PageFunnel {
		return
	}
	c.setStepLocked(ctx, "proceed_to_payment", models.StepPayment)
}

// Pay charges the lead and, when the charge succeeds, completes the payment.
func (c *Controller) Pay(ctx context.Context) (*models.Submission, error) {
	c.mu.Lock()
	if c.page != models.PageFunnel || c.step != models.StepPayment {
		step := c.step
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: on step %s", ErrPaymentNotAvailable, step)
	}
	form := c.form.Clone()
	c.mu.Unlock()

	if c.deps.Payment == nil {
		return nil, apperrors.NewPaymentFailedError(errors.New("no payment provider configured"))
	}
	if err := c.deps.Payment.Charge(ctx, form); err != nil {
		metrics.CollaboratorFailures.WithLabelValues("payment").Inc()
		c.logger.Warn("payment failed", map[string]interface{}{"error": err})
		return nil, apperrors.NewPaymentFailedError(err)
	}
	return c.CompletePayment(ctx)
}

// CompletePayment hands the form to the submission gateway. On success the
// wizard moves to Confirmation and the draft is deleted; a gateway error is
// returned unchanged and leaves the wizard on Payment. When the session was
// restarted or left Payment while the gateway call ran, the submission is
// still returned but the current state and draft are left alone.
func (c *Controller) CompletePayment(ctx context.Context) (*models.Submission, error) {
	c.mu.Lock()
	if c.page != models.PageFunnel {
		c.mu.Unlock()
		return nil, ErrNotInFunnel
	}
	if c.step == models.StepConfirmation && c.submission != nil {
		sub := *c.submission
		c.mu.Unlock()
		return &sub, nil
	}
	if c.step != models.StepPayment {
		step := c.step
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: on step %s", ErrPaymentNotAvailable, step)
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	c.submitting = true
	epoch := c.epoch
	form := c.form.Clone()
	c.mu.Unlock()

	sub, err := c.deps.Gateway.Create(ctx, form)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("submission").Inc()
		c.logger.Error("failed to create submission", map[string]interface{}{"error": err})
		return nil, err
	}

	if epoch == c.epoch && c.page == models.PageFunnel && c.step == models.StepPayment {
		c.submission = sub
		c.setStepLocked(ctx, "complete_payment", models.StepConfirmation)
		c.deps.Drafts.Clear(ctx)
		c.logger.Info("submission created", map[string]interface{}{
			"submissionId": sub.ID,
			"company":      sub.CompanyName,
		})
	} else {
		c.logger.Warn("submission created after the session moved on, keeping current state", map[string]interface{}{
			"submissionId": sub.ID,
			"step":         c.step.String(),
		})
	}

	if c.deps.Listener != nil {
		created := *sub
		c.goSafe("submission-listener", nil, func() {
			c.deps.Listener.SubmissionCreated(c.bg, &created)
		})
	}

	out := *sub
	return &out, nil
}

// UpdateFormData merges patch into the form and clears the errors of every
// field it touches.
func (c *Controller) UpdateFormData(ctx context.Context, patch models.Patch) {
	if patch.IsEmpty() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyPatchLocked(ctx, patch)
}

// ApplySuggestion merges the patch a clicked suggestion produces on the current step.
func (c *Controller) ApplySuggestion(ctx context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	patch := suggestion.Apply(c.step, c.form, text)
	if patch.IsEmpty() {
		return
	}
	c.applyPatchLocked(ctx, patch)
}

// RegenerateSummary clears the company summary and asks the summarizer again.
func (c *Controller) RegenerateSummary(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page != models.PageFunnel {
		return ErrNotInFunnel
	}
	if c.summarizing {
		return ErrSummaryInFlight
	}
	if c.form.Website == "" {
		return ErrNoWebsite
	}

	c.form.CompanySummary = ""
	c.form.WebsiteInsights = []string{}
	c.persistLocked(ctx)
	c.startSummaryLocked(RegenerateFailureText)
	return nil
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() models.WizardState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := models.WizardState{
		Page:        c.page,
		Step:        c.step,
		StepName:    c.step.String(),
		FormData:    c.form.Clone(),
		Errors:      copyErrors(c.errs),
		Summarizing: c.summarizing,
		Guide: models.GuideState{
			Text:        c.guide.Text,
			Suggestions: append([]string{}, c.guide.Suggestions...),
			Loading:     c.guide.Loading,
		},
	}
	if c.submission != nil {
		sub := *c.submission
		sub.FormData = c.submission.FormData.Clone()
		state.Submission = &sub
	}
	return state
}

// Wait blocks until every background collaborator call has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) resetLocked(form models.FormData) {
	c.epoch++
	c.page = models.PageFunnel
	c.form = form
	c.errs = models.FormErrors{}
	c.submission = nil
	c.summarizing = false
}

// setStepLocked moves to step and fires the effects tied to a step change.
func (c *Controller) setStepLocked(ctx context.Context, op string, step models.Step) {
	if !step.Valid() {
		c.logger.Warn("ignoring transition to invalid step", map[string]interface{}{"step": int(step)})
		return
	}
	c.step = step
	metrics.WizardTransitions.WithLabelValues(op, step.String()).Inc()

	c.guideSeq++
	if c.page != models.PageFunnel || step >= models.StepPayment {
		c.guide.Loading = false
		return
	}

	c.guide = models.GuideState{
		Text:        c.deps.Guides.InitialText(step),
		Suggestions: []string{},
		Loading:     true,
	}
	c.startGuideLocked(c.guideSeq, step, c.form.Clone())

	c.persistLocked(ctx)
	c.maybeSummarizeLocked()
}

func (c *Controller) applyPatchLocked(ctx context.Context, patch models.Patch) {
	patch.Normalize()
	patch.ApplyTo(&c.form)
	for _, field := range patch.Fields() {
		delete(c.errs, field)
	}
	c.persistLocked(ctx)
	c.maybeSummarizeLocked()
}

// persistLocked writes the draft while the session is inside the wizard and
// before Payment.
func (c *Controller) persistLocked(ctx context.Context) {
	if c.page != models.PageFunnel || c.step >= models.StepPayment {
		return
	}
	c.deps.Drafts.Save(ctx, c.form, c.step)
}

func (c *Controller) startGuideLocked(token uint64, step models.Step, form models.FormData) {
	onPanic := func() {
		if token != c.guideSeq || step != c.step {
			return
		}
		c.guide = models.GuideState{Text: GuideFailureText, Suggestions: []string{}}
	}
	c.goSafe("guide", onPanic, func() {
		ctx, cancel := context.WithTimeout(c.bg, c.config.GuideTimeout)
		defer cancel()

		guide, err := c.deps.Guides.FetchGuide(ctx, step, form)

		c.mu.Lock()
		defer c.mu.Unlock()

		if token != c.guideSeq || step != c.step {
			c.logger.Debug("discarding stale guide", map[string]interface{}{"step": step.String()})
			return
		}
		c.guide.Loading = false
		if err != nil {
			metrics.CollaboratorFailures.WithLabelValues("guide").Inc()
			c.logger.Warn("guide fetch failed", map[string]interface{}{
				"step":  step.String(),
				"error": err,
			})
			c.guide.Text = GuideFailureText
			c.guide.Suggestions = []string{}
			return
		}
		c.guide.Text = guide.Text
		c.guide.Suggestions = append([]string{}, guide.Suggestions...)
	})
}

func (c *Controller) maybeSummarizeLocked() {
	if c.page != models.PageFunnel || c.step != models.StepCompanyProfile {
		return
	}
	if c.form.Website == "" || c.form.CompanySummary != "" || c.summarizing {
		return
	}
	if _, bad := c.errs["website"]; bad {
		return
	}
	c.startSummaryLocked(SummaryFailureText)
}

func (c *Controller) startSummaryLocked(failureText string) {
	c.summarizing = true
	epoch := c.epoch
	website := c.form.Website

	onPanic := func() {
		if epoch == c.epoch {
			c.summarizing = false
		}
	}
	c.goSafe("summarize", onPanic, func() {
		ctx, cancel := context.WithTimeout(c.bg, c.config.SummaryTimeout)
		defer cancel()

		insights, err := c.deps.Guides.SummarizeWebsite(ctx, website)

		c.mu.Lock()
		defer c.mu.Unlock()

		if epoch != c.epoch {
			return
		}
		c.summarizing = false

		if err == nil && insights.Summary == "" {
			err = errors.New("empty summary")
		}
		if err != nil {
			metrics.CollaboratorFailures.WithLabelValues("summarizer").Inc()
			c.logger.Warn("website summary failed", map[string]interface{}{
				"website": website,
				"error":   err,
			})
			c.applyPatchLocked(context.Background(), models.Patch{CompanySummary: models.Ref(failureText)})
			return
		}

		list := insights.Insights
		if list == nil {
			list = []string{}
		}
		c.applyPatchLocked(context.Background(), models.Patch{
			CompanySummary:  models.Ref(insights.Summary),
			WebsiteInsights: models.Ref(list),
		})
	})
}

// goSafe runs fn on a tracked goroutine and contains any panic it raises.
// When fn panics, onPanic runs under the session lock to restore a usable state.
func (c *Controller) goSafe(name string, onPanic func(), fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("background task panicked", map[string]interface{}{
					"task":  name,
					"panic": fmt.Sprint(r),
				})
				if onPanic != nil {
					c.mu.Lock()
					onPanic()
					c.mu.Unlock()
				}
			}
		}()
		fn()
	}()
}

func copyErrors(in models.FormErrors) models.FormErrors {
	out := make(models.FormErrors, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
