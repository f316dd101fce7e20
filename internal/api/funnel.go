package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"tulipai-funnel/internal/funnel/wizard"
	"tulipai-funnel/internal/models"

	"github.com/go-chi/chi/v5"
)

type sessionResponse struct {
	Session models.Session     `json:"session"`
	State   models.WizardState `json:"state"`
}

type createSessionRequest struct {
	ClientID string `json:"clientId,omitempty"`
}

type suggestionRequest struct {
	Text string `json:"text"`
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller)

func (s *Server) funnelRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/options", s.options)
	r.Post("/sessions", s.createSession)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.withSession(s.getSession))
		r.Get("/draft", s.withSession(s.draftStatus))
		r.Post("/start", s.withSession(s.simple(func(ctx context.Context, c *wizard.Controller) { c.Start(ctx) })))
		r.Post("/resume", s.withSession(s.simple(func(ctx context.Context, c *wizard.Controller) { c.Resume(ctx) })))
		r.Post("/back", s.withSession(s.simple(func(ctx context.Context, c *wizard.Controller) { c.Back(ctx) })))
		r.Post("/proceed-to-payment", s.withSession(s.simple(func(ctx context.Context, c *wizard.Controller) { c.ProceedToPayment(ctx) })))
		r.Post("/next", s.withSession(s.next))
		r.Post("/pay", s.withSession(s.pay))
		r.Post("/complete-payment", s.withSession(s.completePayment))
		r.Post("/suggestions", s.withSession(s.applySuggestion))
		r.Post("/summary/regenerate", s.withSession(s.regenerateSummary))
		r.Patch("/form", s.withSession(s.updateForm))
	})
	return r
}

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ctl, err := s.sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		h(w, r, sess, ctl)
	}
}

// simple adapts a controller operation without a result.
func (s *Server) simple(op func(ctx context.Context, c *wizard.Controller)) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller) {
		op(r.Context(), ctl)
		writeJSON(w, http.StatusOK, sessionResponse{Session: sess, State: ctl.Snapshot()})
	}
}

func (s *Server) options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"options": models.AllOptions(),
		"steps":   models.AllSteps(),
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, ctl := s.sessions.Create(strings.TrimSpace(req.ClientID))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session":  sess,
		"state":    ctl.Snapshot(),
		"hasDraft": ctl.HasDraft(r.Context()),
	})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller) {
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, State: ctl.Snapshot()})
}

func (s *Server) draftStatus(w http.ResponseWriter, r *http.Request, _ models.Session, ctl *wizard.Controller) {
	writeJSON(w, http.StatusOK, map[string]bool{"hasDraft": ctl.HasDraft(r.Context())})
}

// next answers 200 whether or not the step validated; blocking errors are
// part of the returned state.
func (s *Server) next(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller) {
	before := ctl.Snapshot().Step
	ctl.Next(r.Context())
	st := ctl.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":  sess,
		"state":    st,
		"advanced": st.Step != before,
	})
}

func (s *Server) pay(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller) {
	sub, err := ctl.Pay(r.Context())
	s.writeSubmission(w, r, sess, ctl, sub, err)
}

func (s *Server) completePayment(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller) {
	sub, err := ctl.CompletePayment(r.Context())
	s.writeSubmission(w, r, sess, ctl, sub, err)
}

func (s *Server) writeSubmission(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller, sub *models.Submission, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":    sess,
		"state":      ctl.Snapshot(),
		"submission": sub,
	})
}

func (s *Server) applySuggestion(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller) {
	var req suggestionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, r, fmt.Errorf("%w: suggestion text is required", errBadRequest))
		return
	}
	ctl.ApplySuggestion(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, State: ctl.Snapshot()})
}

func (s *Server) regenerateSummary(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller) {
	if err := ctl.RegenerateSummary(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sessionResponse{Session: sess, State: ctl.Snapshot()})
}

func (s *Server) updateForm(w http.ResponseWriter, r *http.Request, sess models.Session, ctl *wizard.Controller) {
	var patch models.Patch
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctl.UpdateFormData(r.Context(), patch)
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, State: ctl.Snapshot()})
}
