package registry

import (
	"errors"
	"time"

	"github.com/voxhollow/switchboard/internal/domain"
)

// Store sentinel errors. The service translates these into the gateway
// error taxonomy; stores never construct taxonomy errors themselves.
var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrTokenNotLive  = errors.New("token does not resolve to a live agent")
)

// Store persists agent records and their security tokens.
//
// RotateToken and Deprovision must be atomic: a concurrent ResolveToken
// sees either the old state or the new one, never two live tokens and
// never a half-applied status flip.
type Store interface {
	// CreateAgent inserts a new agent and its first token in one step.
	CreateAgent(agent *domain.Agent, tok domain.SecurityToken) error

	// GetAgent returns the agent by id, or ErrAgentNotFound.
	GetAgent(agentID string) (*domain.Agent, error)

	// ListAgents returns all agents ordered by creation time.
	ListAgents() ([]*domain.Agent, error)

	// UpdateAgent persists mutable fields (limits, tier, capabilities).
	UpdateAgent(agent *domain.Agent) error

	// ResolveToken returns the agent a live token belongs to, or
	// ErrTokenNotLive when the value is unknown or revoked.
	ResolveToken(value string) (*domain.Agent, error)

	// AgentTokens returns every token ever issued to the agent,
	// oldest first.
	AgentTokens(agentID string) ([]domain.SecurityToken, error)

	// RotateToken revokes the agent's live tokens and inserts tok as the
	// new live token, atomically.
	RotateToken(agentID string, tok domain.SecurityToken) error

	// Deprovision flips the agent to deprovisioned status and revokes its
	// live tokens, atomically.
	Deprovision(agentID string, at time.Time) error
}
