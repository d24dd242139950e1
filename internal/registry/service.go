// Package registry owns agent identity: provisioning, security-token
// lifecycle, per-agent limits, and billing tier. All mutations for one
// agent are serialized through a per-agent lock so regenerate/deprovision
// races cannot leave two live tokens or none.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/logging"
	"github.com/voxhollow/switchboard/internal/token"
)

// Defaults are stamped onto agents at provisioning time.
type Defaults struct {
	Limits domain.RateLimits
	Tier   domain.Tier
}

// Service coordinates agent lifecycle operations over a Store.
type Service struct {
	store    Store
	log      *logging.Logger
	defaults Defaults

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a registry service.
func New(st Store, log *logging.Logger, defaults Defaults) *Service {
	if defaults.Tier == "" {
		defaults.Tier = domain.TierFree
	}
	return &Service{
		store:    st,
		log:      log.Sub("registry"),
		defaults: defaults,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lock returns the serialization mutex for one agent, creating it on
// first use. Locks are never removed; deprovisioned agents reject all
// mutations anyway.
func (s *Service) lock(agentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[agentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[agentID] = l
	}
	return l
}

const provisionExample = `example: {"displayName": "Support Bot", "capabilities": {"phone": true, "email": true}}`

// ValidateProvision checks the provisioning fields without side effects.
// Callers that gate provisioning behind a credential check run this first
// so a malformed request reports the missing field, not the credential.
func ValidateProvision(displayName string, capabilities map[string]bool) error {
	if displayName == "" {
		return domain.Validationf("missing required field: displayName").
			WithDetail("provision requires: displayName, capabilities", provisionExample)
	}
	if capabilities == nil {
		return domain.Validationf("missing required field: capabilities").
			WithDetail("provision requires: displayName, capabilities", provisionExample)
	}
	return nil
}

// Provision creates an active agent and issues its first security token.
// The token value is returned exactly once; only a redacted preview is
// available afterwards.
func (s *Service) Provision(displayName string, capabilities map[string]bool) (*domain.Agent, domain.SecurityToken, error) {
	if err := ValidateProvision(displayName, capabilities); err != nil {
		return nil, domain.SecurityToken{}, err
	}

	value, err := token.Mint()
	if err != nil {
		return nil, domain.SecurityToken{}, err
	}

	now := time.Now().UTC()
	agent := &domain.Agent{
		ID:           uuid.New().String(),
		DisplayName:  displayName,
		Capabilities: capabilities,
		Status:       domain.StatusActive,
		Tier:         s.defaults.Tier,
		Limits:       s.defaults.Limits,
		CreatedAt:    now,
	}
	tok := domain.SecurityToken{Value: value, AgentID: agent.ID, IssuedAt: now}

	if err := s.store.CreateAgent(agent, tok); err != nil {
		return nil, domain.SecurityToken{}, err
	}

	s.log.Info().Str("agent", agent.ID).Str("name", displayName).Msg("agent provisioned")
	return agent, tok, nil
}

// Resolve maps a bearer token value to its live agent.
func (s *Service) Resolve(value string) (*domain.Agent, error) {
	if !token.WellFormed(value) {
		return nil, domain.Authf("invalid security token").
			WithDetail("agent tokens are issued by provisioning and start with " + token.Prefix)
	}

	a, err := s.store.ResolveToken(value)
	if errors.Is(err, ErrTokenNotLive) {
		return nil, unresolvedErr()
	}
	if err != nil {
		return nil, err
	}
	if !a.Active() {
		return nil, unresolvedErr()
	}
	return a, nil
}

func unresolvedErr() *domain.Error {
	return domain.Unresolvedf("agentId could not be resolved from the security token").
		WithDetail("the token may have been revoked by regeneration or deprovisioning",
			"request a new token via POST /api/v1/agents/{id}/regenerate-token or provision a new agent")
}

// Get returns the agent record by id.
func (s *Service) Get(agentID string) (*domain.Agent, error) {
	a, err := s.store.GetAgent(agentID)
	if errors.Is(err, ErrAgentNotFound) {
		return nil, domain.NotFoundf("agent not found: %s", agentID)
	}
	return a, err
}

// List returns all agent records ordered by creation time.
func (s *Service) List() ([]*domain.Agent, error) {
	return s.store.ListAgents()
}

// Tokens returns the issue history for an agent, oldest first.
func (s *Service) Tokens(agentID string) ([]domain.SecurityToken, error) {
	toks, err := s.store.AgentTokens(agentID)
	if errors.Is(err, ErrAgentNotFound) {
		return nil, domain.NotFoundf("agent not found: %s", agentID)
	}
	return toks, err
}

// RegenerateToken atomically revokes the agent's live token and issues a
// new one. Every later call bearing the old value fails to resolve.
func (s *Service) RegenerateToken(agentID string) (domain.SecurityToken, error) {
	l := s.lock(agentID)
	l.Lock()
	defer l.Unlock()

	a, err := s.store.GetAgent(agentID)
	if errors.Is(err, ErrAgentNotFound) {
		return domain.SecurityToken{}, domain.NotFoundf("agent not found: %s", agentID)
	}
	if err != nil {
		return domain.SecurityToken{}, err
	}
	if !a.Active() {
		return domain.SecurityToken{}, domain.Validationf("agent is deprovisioned: %s", agentID).
			WithDetail("deprovisioned agents cannot receive new tokens")
	}

	value, err := token.Mint()
	if err != nil {
		return domain.SecurityToken{}, err
	}
	tok := domain.SecurityToken{Value: value, AgentID: agentID, IssuedAt: time.Now().UTC()}

	if err := s.store.RotateToken(agentID, tok); err != nil {
		return domain.SecurityToken{}, err
	}

	s.log.Info().Str("agent", agentID).Msg("security token regenerated")
	return tok, nil
}

// Deprovision flips the agent to deprovisioned status and revokes its live
// token in the same step. A second deprovision of the same id fails.
func (s *Service) Deprovision(agentID string) (*domain.Agent, error) {
	l := s.lock(agentID)
	l.Lock()
	defer l.Unlock()

	a, err := s.store.GetAgent(agentID)
	if errors.Is(err, ErrAgentNotFound) {
		return nil, domain.NotFoundf("agent not found: %s", agentID)
	}
	if err != nil {
		return nil, err
	}
	if !a.Active() {
		return nil, domain.Validationf("agent is already deprovisioned: %s", agentID)
	}

	if err := s.store.Deprovision(agentID, time.Now().UTC()); err != nil {
		return nil, err
	}

	a.Status = domain.StatusDeprovisioned
	s.log.Info().Str("agent", agentID).Msg("agent deprovisioned")
	return a, nil
}

// SetLimits merges the given limits into the agent's admission limits.
func (s *Service) SetLimits(agentID string, limits domain.RateLimits) (*domain.Agent, error) {
	if limits.MaxActionsPerMinute < 0 || limits.MaxActionsPerHour < 0 {
		return nil, domain.Validationf("limits must be non-negative").
			WithDetail(`example: {"limits": {"maxActionsPerMinute": 20, "maxActionsPerHour": 200}}`)
	}

	l := s.lock(agentID)
	l.Lock()
	defer l.Unlock()

	a, err := s.store.GetAgent(agentID)
	if errors.Is(err, ErrAgentNotFound) {
		return nil, domain.NotFoundf("agent not found: %s", agentID)
	}
	if err != nil {
		return nil, err
	}

	a.Limits = a.Limits.Merge(limits)
	if err := s.store.UpdateAgent(a); err != nil {
		return nil, err
	}

	s.log.Info().Str("agent", agentID).
		Int("perMinute", a.Limits.MaxActionsPerMinute).
		Int("perHour", a.Limits.MaxActionsPerHour).
		Msg("agent limits updated")
	return a, nil
}

// SetTier changes the agent's billing tier. The change is prospective:
// costs already stamped into the ledger are untouched.
func (s *Service) SetTier(agentID, tier string) (*domain.Agent, error) {
	if !domain.KnownTier(tier) {
		return nil, domain.Validationf("unknown billing tier: %q", tier).
			WithDetail("recognized tiers: free, starter, pro, enterprise")
	}

	l := s.lock(agentID)
	l.Lock()
	defer l.Unlock()

	a, err := s.store.GetAgent(agentID)
	if errors.Is(err, ErrAgentNotFound) {
		return nil, domain.NotFoundf("agent not found: %s", agentID)
	}
	if err != nil {
		return nil, err
	}

	a.Tier = domain.Tier(tier)
	if err := s.store.UpdateAgent(a); err != nil {
		return nil, err
	}

	s.log.Info().Str("agent", agentID).Str("tier", tier).Msg("billing tier updated")
	return a, nil
}
