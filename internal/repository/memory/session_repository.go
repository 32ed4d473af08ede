package memory

import (
	"time"

	"ai-proposalgen-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SessionCache keeps recently touched session metadata in process memory so
// the hot path (activity touch on every step) does not round-trip Postgres.
type SessionCache struct {
	cache *cache.Cache
}

func NewSessionCache(defaultTTL time.Duration) *SessionCache {
	// Purge expired entries at a fraction of the TTL.
	c := cache.New(defaultTTL, defaultTTL/4)
	return &SessionCache{
		cache: c,
	}
}

func (r *SessionCache) Save(session *entity.SessionMetadata) {
	r.cache.Set(session.ThreadId, session, cache.DefaultExpiration)
}

func (r *SessionCache) Get(threadID string) (*entity.SessionMetadata, bool) {
	if x, found := r.cache.Get(threadID); found {
		return x.(*entity.SessionMetadata), true
	}
	return nil, false
}

func (r *SessionCache) Delete(threadID string) {
	r.cache.Delete(threadID)
}
