package checkpoint

import (
	"context"
	"encoding/json"
	"time"

	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "checkpoint:"

// CachedStore layers a Redis hot cache in front of a durable Store:
// read-through on Get, write-through on Put. Cache failures degrade to the
// durable store; durable failures are persistence errors.
type CachedStore struct {
	rdb     *redis.Client
	durable Store
	ttl     time.Duration
}

// NewCachedStore wraps durable with a Redis cache. ttl <= 0 disables expiry.
func NewCachedStore(rdb *redis.Client, durable Store, ttl time.Duration) *CachedStore {
	return &CachedStore{rdb: rdb, durable: durable, ttl: ttl}
}

func (c *CachedStore) Get(ctx context.Context, threadID string) (*Record, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, redisKeyPrefix+threadID).Bytes()
		if err == nil {
			var rec Record
			if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
				return &rec, nil
			}
			// Corrupt cache entry: drop it and fall through to durable.
			c.rdb.Del(ctx, redisKeyPrefix+threadID)
		}
	}

	rec, err := c.durable.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		c.fill(ctx, threadID, rec)
	}
	return rec, nil
}

func (c *CachedStore) Put(ctx context.Context, threadID string, st state.WorkflowState) error {
	if err := c.durable.Put(ctx, threadID, st); err != nil {
		return wferrors.Persistence("checkpoint put", err)
	}
	c.fill(ctx, threadID, &Record{ThreadID: threadID, State: st.Clone(), UpdatedAt: time.Now()})
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, threadID string) error {
	if c.rdb != nil {
		c.rdb.Del(ctx, redisKeyPrefix+threadID)
	}
	if err := c.durable.Delete(ctx, threadID); err != nil {
		return wferrors.Persistence("checkpoint delete", err)
	}
	return nil
}

// ListNamespaces always consults the durable store; the cache holds no
// authoritative key set.
func (c *CachedStore) ListNamespaces(ctx context.Context, prefix string) ([]string, error) {
	return c.durable.ListNamespaces(ctx, prefix)
}

func (c *CachedStore) fill(ctx context.Context, threadID string, rec *Record) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	c.rdb.Set(ctx, redisKeyPrefix+threadID, data, ttl)
}
