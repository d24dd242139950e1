package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/voxhollow/switchboard/internal/domain"
)

// MemoryStore is an in-memory Store implementation. It is the default
// backend in demo mode and the fixture for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	agents  map[string]*domain.Agent            // id → agent
	tokens  map[string]*domain.SecurityToken    // value → token
	byAgent map[string][]*domain.SecurityToken  // id → issued tokens, oldest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:  make(map[string]*domain.Agent),
		tokens:  make(map[string]*domain.SecurityToken),
		byAgent: make(map[string][]*domain.SecurityToken),
	}
}

func (s *MemoryStore) CreateAgent(agent *domain.Agent, tok domain.SecurityToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.agents[agent.ID] = agent.Clone()
	t := tok
	s.tokens[tok.Value] = &t
	s.byAgent[agent.ID] = append(s.byAgent[agent.ID], &t)
	return nil
}

func (s *MemoryStore) GetAgent(agentID string) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[agentID]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return a.Clone(), nil
}

func (s *MemoryStore) ListAgents() ([]*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateAgent(agent *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[agent.ID]; !ok {
		return ErrAgentNotFound
	}
	s.agents[agent.ID] = agent.Clone()
	return nil
}

func (s *MemoryStore) ResolveToken(value string) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.tokens[value]
	if !ok || !tok.Live() {
		return nil, ErrTokenNotLive
	}
	a, ok := s.agents[tok.AgentID]
	if !ok || !a.Active() {
		return nil, ErrTokenNotLive
	}
	return a.Clone(), nil
}

func (s *MemoryStore) AgentTokens(agentID string) ([]domain.SecurityToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.agents[agentID]; !ok {
		return nil, ErrAgentNotFound
	}
	toks := s.byAgent[agentID]
	out := make([]domain.SecurityToken, 0, len(toks))
	for _, t := range toks {
		out = append(out, *t)
	}
	return out, nil
}

func (s *MemoryStore) RotateToken(agentID string, tok domain.SecurityToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[agentID]; !ok {
		return ErrAgentNotFound
	}
	s.revokeLiveLocked(agentID, tok.IssuedAt)

	t := tok
	s.tokens[tok.Value] = &t
	s.byAgent[agentID] = append(s.byAgent[agentID], &t)
	return nil
}

func (s *MemoryStore) Deprovision(agentID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[agentID]
	if !ok {
		return ErrAgentNotFound
	}
	a.Status = domain.StatusDeprovisioned
	s.revokeLiveLocked(agentID, at)
	return nil
}

// revokeLiveLocked marks every live token of the agent revoked. Callers
// hold the write lock.
func (s *MemoryStore) revokeLiveLocked(agentID string, at time.Time) {
	for _, t := range s.byAgent[agentID] {
		if t.Live() {
			revoked := at
			t.RevokedAt = &revoked
		}
	}
}
