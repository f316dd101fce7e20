package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tulipai-funnel/internal/admin"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/proposal"
	"tulipai-funnel/internal/submission"

	"github.com/go-chi/chi/v5"
)

const maxListLimit = 500

type statusRequest struct {
	Status models.SubmissionStatus `json:"status"`
}

type quoteRequest struct {
	Quote string `json:"quote"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type regenerateRequest struct {
	Brief string `json:"brief"`
}

func (s *Server) adminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requireToken)

	r.Get("/pipeline", s.pipeline)
	r.Get("/analytics", s.analytics)
	r.Get("/submissions", s.listSubmissions)

	r.Route("/submissions/{id}", func(r chi.Router) {
		r.Get("/", s.getSubmission)
		r.Delete("/", s.deleteSubmission)
		r.Patch("/status", s.updateStatus)
		r.Put("/quote", s.saveQuote)
		r.Put("/notes", s.saveNotes)
		r.Post("/quote/generate", s.generateQuote)
		r.Post("/quote/regenerate", s.regenerateQuote)
		r.Post("/quote/send", s.sendQuote)
		r.Get("/proposal", s.proposalPreview)
	})
	return r
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSubmissionFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	subs, err := s.admin.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"count":       len(subs),
	})
}

func (s *Server) getSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.admin.Get(r.Context(), chi.URLParam(r, "id"))
	s.respondSubmission(w, r, sub, err)
}

func (s *Server) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.admin.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	s.respondSubmission(w, r, sub, err)
}

func (s *Server) saveQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.admin.SaveQuote(r.Context(), chi.URLParam(r, "id"), req.Quote)
	s.respondSubmission(w, r, sub, err)
}

func (s *Server) saveNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.admin.SaveNotes(r.Context(), chi.URLParam(r, "id"), req.Notes)
	s.respondSubmission(w, r, sub, err)
}

func (s *Server) generateQuote(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	sub, err := s.admin.GenerateQuote(r.Context(), chi.URLParam(r, "id"), force)
	s.respondSubmission(w, r, sub, err)
}

func (s *Server) regenerateQuote(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.admin.RegenerateProposal(r.Context(), chi.URLParam(r, "id"), req.Brief)
	s.respondSubmission(w, r, sub, err)
}

func (s *Server) sendQuote(w http.ResponseWriter, r *http.Request) {
	var req admin.SendQuoteRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.admin.SendQuote(r.Context(), chi.URLParam(r, "id"), req)
	s.respondSubmission(w, r, sub, err)
}

// proposalPreview renders the stored quote as a standalone HTML page.
func (s *Server) proposalPreview(w http.ResponseWriter, r *http.Request) {
	sub, err := s.admin.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(sub.GeneratedQuote) == "" || sub.GeneratedQuote == admin.QuoteErrorText {
		s.writeError(w, r, fmt.Errorf("%w: submission %s", admin.ErrNoQuote, sub.ID))
		return
	}
	page, err := proposal.RenderPage(sub.CompanyName, sub.GeneratedQuote)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", proposal.FileName(sub.CompanyName)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (s *Server) pipeline(w http.ResponseWriter, r *http.Request) {
	p, err := s.admin.Pipeline(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAnalyticsFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.admin.Analytics(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) respondSubmission(w http.ResponseWriter, r *http.Request, sub *models.Submission, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func parseSubmissionFilter(r *http.Request) (models.SubmissionFilter, error) {
	q := r.URL.Query()
	filter := models.SubmissionFilter{
		Status:    models.SubmissionStatus(q.Get("status")),
		Query:     strings.TrimSpace(q.Get("q")),
		SortKey:   q.Get("sort"),
		Ascending: strings.EqualFold(q.Get("order"), "asc"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, fmt.Errorf("%w: %q", submission.ErrInvalidStatus, filter.Status)
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return filter, nil
}

func parseAnalyticsFilter(r *http.Request) (submission.AnalyticsFilter, error) {
	q := r.URL.Query()
	filter := submission.AnalyticsFilter{
		Industries: listParam(q.Get("industries")),
		AiStages:   listParam(q.Get("aiStages")),
		TeamSizes:  listParam(q.Get("teamSizes")),
		Search:     strings.TrimSpace(q.Get("search")),
		Interval:   q.Get("interval"),
	}
	switch filter.Interval {
	case "", "day", "week", "month":
	default:
		return filter, fmt.Errorf("%w: interval must be day, week or month", errBadRequest)
	}

	var err error
	if filter.From, err = timeParam(q.Get("from"), "from"); err != nil {
		return filter, err
	}
	if filter.To, err = timeParam(q.Get("to"), "to"); err != nil {
		return filter, err
	}
	if filter.BudgetMin, err = int64Param(q.Get("budgetMin"), "budgetMin"); err != nil {
		return filter, err
	}
	if filter.BudgetMax, err = int64Param(q.Get("budgetMax"), "budgetMax"); err != nil {
		return filter, err
	}
	return filter, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

func int64Param(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return &n, nil
}

// timeParam accepts RFC 3339 timestamps and plain dates.
func timeParam(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s must be a date", errBadRequest, name)
}

func listParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
