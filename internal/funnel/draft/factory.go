package draft

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tulipai-funnel/internal/common/logger"

	"github.com/gosimple/slug"
	"github.com/redis/go-redis/v9"
)

var ErrUnknownStore = errors.New("UNKNOWN_DRAFT_STORE")

// Factory returns the draft store for one draft key.
type Factory func(key string) Store

type FactoryOptions struct {
	Kind   string // redis | memory | file
	Redis  redis.Cmdable
	TTL    time.Duration
	File   string // file kind: drafts live next to this path, one file per key
	Logger logger.Logger
}

// NewFactory selects the backend named by opts.Kind. Memory stores are shared
// per key so a resumed session finds the draft of an earlier one.
func NewFactory(opts FactoryOptions) (Factory, error) {
	log := opts.Logger
	switch opts.Kind {
	case "redis":
		if opts.Redis == nil {
			return nil, fmt.Errorf("%w: redis store needs a client", ErrUnknownStore)
		}
		return func(key string) Store {
			return NewRedisStore(opts.Redis, key, opts.TTL, log)
		}, nil

	case "memory":
		var mu sync.Mutex
		stores := map[string]*MemoryStore{}
		return func(key string) Store {
			mu.Lock()
			defer mu.Unlock()
			s, ok := stores[key]
			if !ok {
				s = NewMemoryStore(log)
				stores[key] = s
			}
			return s
		}, nil

	case "file":
		dir := filepath.Dir(opts.File)
		base := strings.TrimSuffix(filepath.Base(opts.File), filepath.Ext(opts.File))
		return func(key string) Store {
			return NewFileStore(filepath.Join(dir, base+"-"+slug.Make(key)+".json"), log)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStore, opts.Kind)
}
