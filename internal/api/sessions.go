package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/funnel/wizard"
	"tulipai-funnel/internal/models"

	"github.com/google/uuid"
)

// ControllerFactory builds the wizard for a new session. The draft key
// decides which persisted draft the session resumes from.
type ControllerFactory func(draftKey string) *wizard.Controller

type sessionEntry struct {
	session    models.Session
	controller *wizard.Controller
}

// Sessions holds the wizard sessions of this process and expires idle ones.
type Sessions struct {
	mu      sync.Mutex
	items   map[string]*sessionEntry
	ttl     time.Duration
	prefix  string
	factory ControllerFactory
	logger  logger.Logger
	now     func() time.Time
}

func NewSessions(ttl time.Duration, draftPrefix string, factory ControllerFactory, log logger.Logger) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Sessions{
		items:   make(map[string]*sessionEntry),
		ttl:     ttl,
		prefix:  draftPrefix,
		factory: factory,
		logger:  log.WithFields(map[string]interface{}{"component": "sessions"}),
		now:     time.Now,
	}
}

// Create opens a session. A client id keeps the draft stable across
// sessions of the same browser; without one the draft is per session.
func (s *Sessions) Create(clientID string) (models.Session, *wizard.Controller) {
	now := s.now()
	id := uuid.NewString()
	owner := clientID
	if owner == "" {
		owner = id
	}

	entry := &sessionEntry{
		session: models.Session{
			ID:           id,
			DraftKey:     fmt.Sprintf("%s:%s", s.prefix, owner),
			CreatedAt:    now,
			LastActivity: now,
			ExpiresAt:    now.Add(s.ttl),
		},
	}
	entry.controller = s.factory(entry.session.DraftKey)

	s.mu.Lock()
	s.items[id] = entry
	n := len(s.items)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	s.logger.Debug("session created", map[string]interface{}{"sessionId": id})
	return entry.session, entry.controller
}

// Get returns a live session and extends its expiry.
func (s *Sessions) Get(id string) (models.Session, *wizard.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[id]
	now := s.now()
	if !ok || now.After(entry.session.ExpiresAt) {
		return models.Session{}, nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	entry.session.LastActivity = now
	entry.session.ExpiresAt = now.Add(s.ttl)
	return entry.session, entry.controller, nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Sessions) Sweep() int {
	now := s.now()
	removed := 0

	s.mu.Lock()
	for id, entry := range s.items {
		if now.After(entry.session.ExpiresAt) {
			removed++
			delete(s.items, id)
		}
	}
	n := len(s.items)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	if removed > 0 {
		s.logger.Info("expired sessions removed", map[string]interface{}{
			"removed": removed,
			"active":  n,
		})
	}
	return removed
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Run sweeps on every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Wait blocks until the async work of every held controller is done.
func (s *Sessions) Wait() {
	s.mu.Lock()
	ctls := make([]*wizard.Controller, 0, len(s.items))
	for _, entry := range s.items {
		ctls = append(ctls, entry.controller)
	}
	s.mu.Unlock()

	for _, c := range ctls {
		c.Wait()
	}
}
