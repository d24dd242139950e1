package domain

// PrincipalKind discriminates the authenticated caller type.
type PrincipalKind int

const (
	PrincipalAdmin PrincipalKind = iota + 1
	PrincipalAgent
)

// Principal is the resolved identity of an authenticated request. The
// administrative sentinel carries no agent identity and authorizes only
// provisioning-family operations.
type Principal struct {
	Kind    PrincipalKind
	AgentID string
}

// AdminPrincipal returns the administrative principal.
func AdminPrincipal() Principal { return Principal{Kind: PrincipalAdmin} }

// AgentPrincipal returns a principal for the given agent.
func AgentPrincipal(agentID string) Principal {
	return Principal{Kind: PrincipalAgent, AgentID: agentID}
}

// IsAdmin reports whether the caller holds the administrative credential.
func (p Principal) IsAdmin() bool { return p.Kind == PrincipalAdmin }

// IsAgent reports whether the caller is a resolved agent.
func (p Principal) IsAgent() bool { return p.Kind == PrincipalAgent }
