// Package admin implements the sales-pipeline operations behind the admin
// dashboard: status changes, the proposal lifecycle and pipeline metrics.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/submission"
)

const QuoteErrorText = "Error generating quote."

var (
	ErrNoQuote             = errors.New("NO_QUOTE")
	ErrSearchUnavailable   = errors.New("SEARCH_UNAVAILABLE")
	ErrQuoteGenerateFailed = errors.New("QUOTE_GENERATION_FAILED")
)

// Store is the persistence the admin surface works against.
type Store interface {
	Get(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	Update(ctx context.Context, id string, upd models.SubmissionUpdate) (*models.Submission, error)
	Delete(ctx context.Context, id string) error
}

type QuoteWriter interface {
	GenerateQuote(ctx context.Context, sub models.Submission) (string, error)
	RegenerateFromBrief(ctx context.Context, sub models.Submission, brief string) (string, error)
}

type Mailer interface {
	SendQuote(ctx context.Context, email models.QuoteEmail) (*models.Notification, error)
}

type SearchIndex interface {
	IndexSubmission(ctx context.Context, sub models.Submission) error
	DeleteSubmission(ctx context.Context, id string) error
	Analytics(ctx context.Context, filter submission.AnalyticsFilter) (*submission.Analytics, error)
}

type Dependencies struct {
	Store  Store
	Writer QuoteWriter
	Mailer Mailer
	Search SearchIndex // optional
}

type Service struct {
	deps   Dependencies
	logger logger.Logger
}

func NewService(deps Dependencies, log logger.Logger) *Service {
	return &Service{
		deps: deps,
		logger: log.WithFields(map[string]interface{}{
			"component": "admin",
		}),
	}
}

func (s *Service) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	return s.deps.Store.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Submission, error) {
	return s.deps.Store.Get(ctx, id)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) (*models.Submission, error) {
	sub, err := s.deps.Store.Update(ctx, id, models.SubmissionUpdate{Status: &status})
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, sub)
	return sub, nil
}

func (s *Service) SaveQuote(ctx context.Context, id, quote string) (*models.Submission, error) {
	return s.deps.Store.Update(ctx, id, models.SubmissionUpdate{GeneratedQuote: &quote})
}

func (s *Service) SaveNotes(ctx context.Context, id, notes string) (*models.Submission, error) {
	return s.deps.Store.Update(ctx, id, models.SubmissionUpdate{InternalNotes: &notes})
}

// GenerateQuote writes a fresh proposal for the submission. An existing quote
// is kept unless force is set or it is a recorded failure. A failed generation
// is stored on the submission as QuoteErrorText rather than returned, so the
// dashboard can show it in place of the proposal.
func (s *Service) GenerateQuote(ctx context.Context, id string, force bool) (*models.Submission, error) {
	sub, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.GeneratedQuote != "" && sub.GeneratedQuote != QuoteErrorText && !force {
		return sub, nil
	}

	if _, err := s.deps.Store.Update(ctx, id, models.SubmissionUpdate{
		GeneratedQuote: models.Ref(""),
		IsQuoteLoading: models.Ref(true),
	}); err != nil {
		return nil, err
	}

	quote, genErr := s.deps.Writer.GenerateQuote(ctx, *sub)
	if genErr != nil {
		metrics.CollaboratorFailures.WithLabelValues("quote").Inc()
		s.logger.Error("quote generation failed", map[string]interface{}{
			"error":        genErr,
			"submissionId": id,
		})
		quote = QuoteErrorText
	}

	// The loading flag is cleared even when ctx has expired.
	updated, err := s.deps.Store.Update(context.WithoutCancel(ctx), id, models.SubmissionUpdate{
		GeneratedQuote: &quote,
		IsQuoteLoading: models.Ref(false),
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RegenerateProposal rewrites the proposal around an edited executive brief.
func (s *Service) RegenerateProposal(ctx context.Context, id, brief string) (*models.Submission, error) {
	if strings.TrimSpace(brief) == "" {
		return nil, fmt.Errorf("%w: executive brief is empty", ErrQuoteGenerateFailed)
	}
	sub, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	quote, err := s.deps.Writer.RegenerateFromBrief(ctx, *sub, brief)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("quote").Inc()
		return nil, fmt.Errorf("%w: %w", ErrQuoteGenerateFailed, err)
	}
	return s.deps.Store.Update(ctx, id, models.SubmissionUpdate{GeneratedQuote: &quote})
}

// SendQuoteRequest carries the optional edits made in the send dialog.
type SendQuoteRequest struct {
	Subject string `json:"subject,omitempty"`
	Content string `json:"content,omitempty"`
}

// SendQuote mails the proposal to the lead and moves the submission to
// proposal_sent.
func (s *Service) SendQuote(ctx context.Context, id string, req SendQuoteRequest) (*models.Submission, error) {
	sub, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	quote := sub.GeneratedQuote
	if req.Content != "" && req.Content != quote {
		if sub, err = s.SaveQuote(ctx, id, req.Content); err != nil {
			return nil, err
		}
		quote = req.Content
	}
	if strings.TrimSpace(quote) == "" || quote == QuoteErrorText {
		return nil, fmt.Errorf("%w: submission %s", ErrNoQuote, id)
	}

	if _, err := s.deps.Mailer.SendQuote(ctx, models.QuoteEmail{
		CompanyName:     sub.CompanyName,
		ContactName:     sub.Name,
		ContactEmail:    sub.Email,
		QuoteContent:    quote,
		SubmissionID:    sub.ID,
		SubjectOverride: req.Subject,
	}); err != nil {
		return nil, err
	}

	return s.UpdateStatus(ctx, id, models.StatusProposalSent)
}

// Delete removes the submission; the search document is removed best-effort.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.deps.Store.Delete(ctx, id); err != nil {
		return err
	}
	if s.deps.Search != nil {
		if err := s.deps.Search.DeleteSubmission(ctx, id); err != nil {
			s.logger.Warn("search document delete failed", map[string]interface{}{
				"error":        err,
				"submissionId": id,
			})
		}
	}
	return nil
}

func (s *Service) Analytics(ctx context.Context, filter submission.AnalyticsFilter) (*submission.Analytics, error) {
	if s.deps.Search == nil {
		return nil, ErrSearchUnavailable
	}
	return s.deps.Search.Analytics(ctx, filter)
}

func (s *Service) reindex(ctx context.Context, sub *models.Submission) {
	if s.deps.Search == nil {
		return
	}
	if err := s.deps.Search.IndexSubmission(ctx, *sub); err != nil {
		s.logger.Warn("search reindex failed", map[string]interface{}{
			"error":        err,
			"submissionId": sub.ID,
		})
	}
}
