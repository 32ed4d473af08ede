package checkpoint

import (
	"context"
	"sort"
	"strings"
	"time"

	"ai-proposalgen-be/pkg/workflow/state"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store used in tests and single-node setups.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a store whose entries never expire.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (m *MemoryStore) Get(_ context.Context, threadID string) (*Record, error) {
	if x, found := m.cache.Get(threadID); found {
		rec := x.(Record)
		return &rec, nil
	}
	return nil, nil
}

func (m *MemoryStore) Put(_ context.Context, threadID string, st state.WorkflowState) error {
	m.cache.Set(threadID, Record{
		ThreadID:  threadID,
		State:     st.Clone(),
		UpdatedAt: time.Now(),
	}, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	m.cache.Delete(threadID)
	return nil
}

func (m *MemoryStore) ListNamespaces(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for key := range m.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}
