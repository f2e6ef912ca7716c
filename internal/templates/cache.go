package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/samparkhq/sampark/pkg/logging"
)

// recordGetter is satisfied by *Store.
type recordGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*Template, error)
}

// RecordCache is a read-through Redis cache in front of the template store.
// Broadcast workers hit the same few templates for every contact in a
// campaign, so record reads are served from Redis with a short TTL and
// invalidated whenever the record is saved or deleted.
type RecordCache struct {
	redis  *redis.Client
	store  recordGetter
	ttl    time.Duration
	logger *logging.Logger
}

func NewRecordCache(redisClient *redis.Client, store recordGetter, ttl time.Duration, logger *logging.Logger) *RecordCache {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecordCache{redis: redisClient, store: store, ttl: ttl, logger: logger}
}

func (c *RecordCache) key(id uuid.UUID) string {
	return fmt.Sprintf("template:record:%s", id)
}

// Get returns the template record, preferring the cached copy. Cache
// failures degrade to the store: a broken Redis never blocks a send.
func (c *RecordCache) Get(ctx context.Context, id uuid.UUID) (*Template, error) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, c.key(id)).Bytes()
		if err == nil {
			var tpl Template
			if err := json.Unmarshal(data, &tpl); err == nil {
				return &tpl, nil
			}
			c.logger.Warn("template cache entry corrupt, falling through", "template_id", id)
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("template cache read failed", "template_id", id, "error", err)
		}
	}

	tpl, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		if data, err := json.Marshal(tpl); err == nil {
			if err := c.redis.Set(ctx, c.key(id), data, c.ttl).Err(); err != nil {
				c.logger.Warn("template cache write failed", "template_id", id, "error", err)
			}
		}
	}
	return tpl, nil
}

// Invalidate drops the cached record after a save or delete.
func (c *RecordCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, c.key(id)).Err(); err != nil {
		c.logger.Warn("template cache invalidate failed", "template_id", id, "error", err)
	}
}
