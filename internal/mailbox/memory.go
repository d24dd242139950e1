package mailbox

import (
	"sync"

	"github.com/voxhollow/switchboard/internal/domain"
)

// MemoryStore keeps queues in memory, for demo mode and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byAgent map[string][]*domain.WaitingMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byAgent: make(map[string][]*domain.WaitingMessage)}
}

func (m *MemoryStore) Append(msg *domain.WaitingMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *msg
	m.byAgent[msg.AgentID] = append(m.byAgent[msg.AgentID], &cp)
	return nil
}

func (m *MemoryStore) List(agentID string) ([]*domain.WaitingMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queue := m.byAgent[agentID]
	out := make([]*domain.WaitingMessage, 0, len(queue))
	for _, msg := range queue {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) Count(agentID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byAgent[agentID]), nil
}

func (m *MemoryStore) TrimOldest(agentID string, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.byAgent[agentID]
	if len(queue) <= keep {
		return nil
	}
	trimmed := make([]*domain.WaitingMessage, keep)
	copy(trimmed, queue[len(queue)-keep:])
	m.byAgent[agentID] = trimmed
	return nil
}
