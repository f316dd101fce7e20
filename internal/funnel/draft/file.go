// internal/funnel/draft/file.go
package draft

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/models"
)

// FileStore keeps the draft in a JSON file. Writes go to a temp file that is
// renamed over the target, so readers never see a partial draft.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger logger.Logger
}

func NewFileStore(path string, log logger.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: log.WithFields(map[string]interface{}{"draftStore": "file", "path": path}),
	}
}

func (s *FileStore) Save(_ context.Context, form models.FormData, step models.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.write(form, step)
	record("save", err)
	if err != nil {
		s.logger.Warn("failed to save draft", map[string]interface{}{
			"error": err,
			"step":  step.String(),
		})
	}
}

func (s *FileStore) write(form models.FormData, step models.Step) error {
	raw, err := Encode(form, step)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".draft-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Load(_ context.Context) (models.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		record("load", nil)
		return models.Draft{}, false
	}
	if err != nil {
		record("load", err)
		s.logger.Warn("failed to read draft", map[string]interface{}{"error": err})
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

func (s *FileStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	record("clear", err)
	if err != nil {
		s.logger.Warn("failed to clear draft", map[string]interface{}{"error": err})
	}
}
