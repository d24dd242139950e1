package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/voxhollow/switchboard/internal/domain"
)

// Store persists dispatched-action records. Records are append-only:
// nothing updates or deletes them after the write.
type Store interface {
	// Append writes one record.
	Append(rec *domain.ActionRecord) error

	// ListSince returns the agent's records with CreatedAt >= since,
	// oldest first.
	ListSince(agentID string, since time.Time) ([]*domain.ActionRecord, error)
}

// MemoryStore keeps records in memory, for demo mode and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byAgent map[string][]*domain.ActionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byAgent: make(map[string][]*domain.ActionRecord)}
}

func (m *MemoryStore) Append(rec *domain.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	m.byAgent[rec.AgentID] = append(m.byAgent[rec.AgentID], &cp)
	return nil
}

func (m *MemoryStore) ListSince(agentID string, since time.Time) ([]*domain.ActionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.ActionRecord
	for _, rec := range m.byAgent[agentID] {
		if rec.CreatedAt.Before(since) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
