package domain

import "time"

// SecurityToken is an opaque bearer credential bound to one agent. At most
// one live token resolves to a given agent at any instant; regeneration
// revokes the old token in the same step that issues the new one.
type SecurityToken struct {
	Value     string     `json:"-"`
	AgentID   string     `json:"agentId"`
	IssuedAt  time.Time  `json:"issuedAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// Live reports whether the token still resolves to its agent.
func (t SecurityToken) Live() bool { return t.RevokedAt == nil }

// Preview returns a redacted form of the token value safe for listings.
func (t SecurityToken) Preview() string {
	if len(t.Value) <= 8 {
		return t.Value
	}
	return t.Value[:8] + "..."
}
