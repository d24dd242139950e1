package gateway

import (
	"net/http"
	"os"
	"strings"

	"github.com/voxhollow/switchboard/internal/config"
	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/token"
)

// demoAdminToken is the fixed administrative sentinel used in demo mode.
const demoAdminToken = config.DemoAdminToken

// ResolvedAuth holds the gateway's resolved credential configuration.
type ResolvedAuth struct {
	Mode       string // "demo" | "live"
	AdminToken string
}

// ResolveAuth resolves the administrative credential from config and
// environment. Precedence: config value → env variable → demo sentinel
// (demo mode only; a live gateway without an admin token simply has no
// admin principal).
func ResolveAuth(cfg config.ServerConfig) ResolvedAuth {
	auth := ResolvedAuth{Mode: cfg.Mode}
	if auth.Mode == "" {
		auth.Mode = "demo"
	}

	auth.AdminToken = cfg.AdminToken
	if auth.AdminToken == "" {
		auth.AdminToken = os.Getenv("SWITCHBOARD_ADMIN_TOKEN")
	}
	if auth.AdminToken == "" && auth.Mode != "live" {
		auth.AdminToken = demoAdminToken
	}

	return auth
}

// bearerToken extracts the credential from the Authorization header. The
// "Bearer " scheme prefix is optional so curl one-liners work too.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return h
}

// authenticate resolves the request credential into a principal, exactly
// once per request. The admin sentinel yields the administrative principal
// with no agent identity; everything else must resolve to a live agent.
// In demo mode a missing credential falls back to the shared demo agent so
// local clients can explore the API without provisioning first.
func (s *Server) authenticate(r *http.Request) (domain.Principal, *domain.Agent, error) {
	value := bearerToken(r)

	if value == "" {
		if s.auth.Mode == "live" {
			return domain.Principal{}, nil, missingAuthErr()
		}
		return s.demoPrincipal()
	}

	if s.auth.AdminToken != "" && token.Equal(value, s.auth.AdminToken) {
		return domain.AdminPrincipal(), nil, nil
	}

	agent, err := s.registry.Resolve(value)
	if err != nil {
		return domain.Principal{}, nil, err
	}
	return domain.AgentPrincipal(agent.ID), agent, nil
}

func (s *Server) demoPrincipal() (domain.Principal, *domain.Agent, error) {
	if s.demoAgentID == "" {
		return domain.Principal{}, nil, missingAuthErr()
	}
	agent, err := s.registry.Get(s.demoAgentID)
	if err != nil {
		return domain.Principal{}, nil, err
	}
	if !agent.Active() {
		return domain.Principal{}, nil, domain.Unresolvedf("the demo agent is deprovisioned").
			WithDetail("provision a new agent via POST /api/v1/provision")
	}
	return domain.AgentPrincipal(agent.ID), agent, nil
}

func missingAuthErr() *domain.Error {
	return domain.Authf("missing Authorization header").
		WithDetail("expected: Authorization: Bearer <securityToken>")
}

// requireAgent rejects the administrative sentinel on agent-scoped routes.
func requireAgent(p domain.Principal, agent *domain.Agent) (*domain.Agent, error) {
	if !p.IsAgent() || agent == nil {
		return nil, domain.Authf("this operation requires an agent security token").
			WithDetail("the administrative credential only authorizes provisioning operations")
	}
	return agent, nil
}

// canActFor reports whether the principal may operate on agentID: admins
// may touch any agent, agents only themselves.
func canActFor(p domain.Principal, agentID string) bool {
	if p.IsAdmin() {
		return true
	}
	return p.IsAgent() && p.AgentID == agentID
}

func notAuthorizedErr(agentID string) *domain.Error {
	return domain.Authf("the supplied token does not authorize operations on agent %s", agentID).
		WithDetail("use that agent's own security token or the administrative credential")
}

func adminRequiredErr() *domain.Error {
	return domain.Authf("this operation requires the administrative credential").
		WithDetail("agent security tokens cannot provision or onboard other agents")
}

// authedHandler is an HTTP handler that runs after principal resolution.
type authedHandler func(w http.ResponseWriter, r *http.Request, p domain.Principal, agent *domain.Agent)

// protected wraps a handler with credential resolution and per-IP
// failed-auth limiting. The limiter counts resolution failures only, so a
// well-behaved agent hammering a dead token slows down while healthy
// traffic is untouched.
func (s *Server) protected(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.allow(r.RemoteAddr) {
			s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited — too many failed auth attempts")
			s.writeError(w, domain.RateLimitedf("too many failed authentication attempts").
				WithDetail("wait a few minutes before retrying"))
			return
		}

		p, agent, err := s.authenticate(r)
		if err != nil {
			s.authLimiter.recordFailure(r.RemoteAddr)
			s.writeError(w, err)
			return
		}

		next(w, r, p, agent)
	}
}
