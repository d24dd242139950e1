package domain

import "time"

// AgentStatus is the lifecycle state of an agent record. Deprovisioning
// flips the status instead of deleting the record so ledger history keeps
// a valid agent reference.
type AgentStatus string

const (
	StatusActive        AgentStatus = "active"
	StatusDeprovisioned AgentStatus = "deprovisioned"
)

// RateLimits caps how many actions an agent may dispatch per window.
// A zero field means "use the gateway default".
type RateLimits struct {
	MaxActionsPerMinute int `json:"maxActionsPerMinute,omitempty" yaml:"maxActionsPerMinute,omitempty"`
	MaxActionsPerHour   int `json:"maxActionsPerHour,omitempty" yaml:"maxActionsPerHour,omitempty"`
}

// Merge overlays the non-zero fields of o on top of l.
func (l RateLimits) Merge(o RateLimits) RateLimits {
	if o.MaxActionsPerMinute > 0 {
		l.MaxActionsPerMinute = o.MaxActionsPerMinute
	}
	if o.MaxActionsPerHour > 0 {
		l.MaxActionsPerHour = o.MaxActionsPerHour
	}
	return l
}

// Agent is a provisioned identity authorized to perform communication
// actions through the gateway.
type Agent struct {
	ID           string          `json:"agentId"`
	DisplayName  string          `json:"displayName"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
	Status       AgentStatus     `json:"status"`
	Tier         Tier            `json:"tier"`
	Limits       RateLimits      `json:"limits"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Active reports whether the agent may still dispatch actions.
func (a *Agent) Active() bool { return a.Status == StatusActive }

// Clone returns a copy whose capability map is independent of the original.
func (a *Agent) Clone() *Agent {
	c := *a
	if a.Capabilities != nil {
		c.Capabilities = make(map[string]bool, len(a.Capabilities))
		for k, v := range a.Capabilities {
			c.Capabilities[k] = v
		}
	}
	return &c
}
