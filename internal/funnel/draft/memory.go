package draft

import (
	"context"
	"sync"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/models"
)

// MemoryStore holds the serialized draft in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	raw    []byte
	saves  int
	logger logger.Logger
}

func NewMemoryStore(log logger.Logger) *MemoryStore {
	return &MemoryStore{logger: log.WithFields(map[string]interface{}{"draftStore": "memory"})}
}

func (s *MemoryStore) Save(_ context.Context, form models.FormData, step models.Step) {
	raw, err := Encode(form, step)
	record("save", err)
	if err != nil {
		s.logger.Warn("failed to encode draft", map[string]interface{}{"error": err})
		return
	}
	s.mu.Lock()
	s.raw = raw
	s.saves++
	s.mu.Unlock()
}

func (s *MemoryStore) Load(_ context.Context) (models.Draft, bool) {
	s.mu.Lock()
	raw := s.raw
	s.mu.Unlock()
	if raw == nil {
		return models.Draft{}, false
	}

	d, err := Decode(raw)
	record("load", err)
	if err != nil {
		s.logger.Warn("discarding malformed draft", map[string]interface{}{"error": err})
		return models.Draft{}, false
	}
	return d, true
}

func (s *MemoryStore) Clear(_ context.Context) {
	s.mu.Lock()
	s.raw = nil
	s.mu.Unlock()
	record("clear", nil)
}

// Saves returns how many drafts have been written.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
