// internal/funnel/draft/redis.go
package draft

import (
	"context"
	"errors"
	"time"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the draft under one Redis key.
type RedisStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisStore(client redis.Cmdable, key string, ttl time.Duration, log logger.Logger) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"draftStore": "redis", "key": key}),
	}
}

func (s *RedisStore) Save(ctx context.Context, form models.FormData, step models.Step) {
	raw, err := Encode(form, step)
	if err == nil {
		err = s.client.Set(ctx, s.key, raw, s.ttl).Err()
	}
	record("save", err)
	if err != nil {
		s.logger.Warn("failed to save draft", map[string]interface{}{
			"error": err,
			"step":  step.String(),
		})
	}
}

func (s *RedisStore) Load(ctx context.Context) (models.Draft, bool) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		record("load", nil)
		return models.Draft{}, false
	}
	if err != nil {
		record("load", err)
		s.logger.Warn("failed to load draft", map[string]interface{}{"error": err})
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

func (s *RedisStore) Clear(ctx context.Context) {
	err := s.client.Del(ctx, s.key).Err()
	record("clear", err)
	if err != nil {
		s.logger.Warn("failed to clear draft", map[string]interface{}{"error": err})
	}
}
