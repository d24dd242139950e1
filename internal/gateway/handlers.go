package gateway

import (
	"net/http"
	"time"

	"github.com/voxhollow/switchboard/internal/dispatch"
	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/hooks"
	"github.com/voxhollow/switchboard/internal/ledger"
	"github.com/voxhollow/switchboard/internal/registry"
)

// --- health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"mode":    s.auth.Mode,
		"version": s.version,
	})
}

// --- lifecycle ---

type provisionRequest struct {
	DisplayName  string          `json:"displayName"`
	Capabilities map[string]bool `json:"capabilities"`
}

// handleProvision validates the payload before checking the credential:
// a malformed request reports the missing field even when the caller
// holds no administrative token.
func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request, p domain.Principal, _ *domain.Agent) {
	agent, tok, err := s.provision(r, p)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"agentId":       agent.ID,
		"securityToken": tok.Value,
		"displayName":   agent.DisplayName,
		"status":        agent.Status,
		"tier":          agent.Tier,
		"limits":        agent.Limits,
		"createdAt":     agent.CreatedAt,
	})
}

// handleOnboard is provision plus a quick-start script for the caller.
func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request, p domain.Principal, _ *domain.Agent) {
	agent, tok, err := s.provision(r, p)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"agentId": agent.ID,
		"provisioning": map[string]any{
			"agentId":       agent.ID,
			"securityToken": tok.Value,
			"displayName":   agent.DisplayName,
			"status":        agent.Status,
			"tier":          agent.Tier,
			"limits":        agent.Limits,
			"createdAt":     agent.CreatedAt,
		},
		"nextSteps": []string{
			"store the securityToken now: it is shown exactly once",
			"send your first message: POST " + apiBase + "/send-message with Authorization: Bearer <securityToken>",
			"poll GET " + apiBase + "/waiting-messages for inbound replies",
		},
	})
}

func (s *Server) provision(r *http.Request, p domain.Principal) (*domain.Agent, domain.SecurityToken, error) {
	var req provisionRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, domain.SecurityToken{}, err
	}
	if err := registry.ValidateProvision(req.DisplayName, req.Capabilities); err != nil {
		return nil, domain.SecurityToken{}, err
	}
	if !p.IsAdmin() {
		return nil, domain.SecurityToken{}, adminRequiredErr()
	}

	agent, tok, err := s.registry.Provision(req.DisplayName, req.Capabilities)
	if err != nil {
		return nil, domain.SecurityToken{}, err
	}

	if s.hooks != nil {
		s.hooks.Emit(r.Context(), hooks.EventAgentProvisioned, map[string]any{
			"agentId":     agent.ID,
			"displayName": agent.DisplayName,
		})
	}
	return agent, tok, nil
}

type deprovisionRequest struct {
	AgentID string `json:"agentId"`
}

func (s *Server) handleDeprovision(w http.ResponseWriter, r *http.Request, p domain.Principal, agent *domain.Agent) {
	var req deprovisionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	// Agents default to retiring themselves; admins must say who.
	if req.AgentID == "" && p.IsAgent() {
		req.AgentID = p.AgentID
	}
	if req.AgentID == "" {
		s.writeError(w, domain.Validationf("missing required field: agentId").
			WithDetail(`example: {"agentId": "3f6c0f5e-..."}`))
		return
	}
	if !canActFor(p, req.AgentID) {
		s.writeError(w, notAuthorizedErr(req.AgentID))
		return
	}

	a, err := s.registry.Deprovision(req.AgentID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.hooks != nil {
		s.hooks.Emit(r.Context(), hooks.EventAgentDeprovisioned, map[string]any{
			"agentId": a.ID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"agentId": a.ID,
		"status":  a.Status,
	})
}

func (s *Server) handleAgentsList(w http.ResponseWriter, r *http.Request, p domain.Principal, _ *domain.Agent) {
	if !p.IsAdmin() {
		s.writeError(w, adminRequiredErr())
		return
	}

	agents, err := s.registry.List()
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agents": agents,
		"count":  len(agents),
	})
}

// tokenView is the redacted listing form of a security token.
type tokenView struct {
	Token     string     `json:"token"`
	IssuedAt  time.Time  `json:"issuedAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	Live      bool       `json:"live"`
}

func (s *Server) handleAgentTokens(w http.ResponseWriter, r *http.Request, p domain.Principal, _ *domain.Agent) {
	agentID := r.PathValue("id")
	if !canActFor(p, agentID) {
		s.writeError(w, notAuthorizedErr(agentID))
		return
	}

	toks, err := s.registry.Tokens(agentID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]tokenView, 0, len(toks))
	for _, t := range toks {
		views = append(views, tokenView{
			Token:     t.Preview(),
			IssuedAt:  t.IssuedAt,
			RevokedAt: t.RevokedAt,
			Live:      t.Live(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agentId": agentID,
		"tokens":  views,
		"count":   len(views),
	})
}

func (s *Server) handleRegenerateToken(w http.ResponseWriter, r *http.Request, p domain.Principal, _ *domain.Agent) {
	agentID := r.PathValue("id")
	if !canActFor(p, agentID) {
		s.writeError(w, notAuthorizedErr(agentID))
		return
	}

	tok, err := s.registry.RegenerateToken(agentID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"agentId":  agentID,
		"token":    tok.Value,
		"issuedAt": tok.IssuedAt,
	})
}

// --- actions ---

// action returns a handler that dispatches one named action for the
// calling agent. Validation, admission and delivery all live in the
// dispatcher; this layer only shapes the receipt.
func (s *Server) action(act domain.Action) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, p domain.Principal, agent *domain.Agent) {
		agent, err := requireAgent(p, agent)
		if err != nil {
			s.writeError(w, err)
			return
		}

		var payload dispatch.Payload
		if err := decodeJSON(r, &payload); err != nil {
			s.writeError(w, err)
			return
		}

		outcome, err := s.dispatcher.Dispatch(r.Context(), agent, act, payload)
		if err != nil {
			s.writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, actionResponse(outcome))
	}
}

// actionResponse names the provider reference the way each channel's
// callers expect: message channels get a messageSid, voice channels a
// callSid.
func actionResponse(o *dispatch.Outcome) map[string]any {
	resp := map[string]any{
		"success":  true,
		"channel":  o.Channel,
		"provider": o.Provider,
	}
	switch o.Channel {
	case domain.ChannelSMS, domain.ChannelEmail:
		resp["messageSid"] = o.Ref
	default:
		resp["callSid"] = o.Ref
	}
	return resp
}

// --- introspection ---

// introspectionAgent resolves which agent a read-only query concerns.
// Agents read themselves; admins must name the agent in the query string.
func (s *Server) introspectionAgent(p domain.Principal, agent *domain.Agent, r *http.Request) (*domain.Agent, error) {
	qid := r.URL.Query().Get("agentId")
	if p.IsAdmin() {
		if qid == "" {
			return nil, domain.Validationf("missing required parameter: agentId").
				WithDetail("administrative reads must name the agent: ?agentId=<id>")
		}
		return s.registry.Get(qid)
	}
	if qid != "" && qid != agent.ID {
		return nil, notAuthorizedErr(qid)
	}
	return agent, nil
}

func (s *Server) handleWaitingMessages(w http.ResponseWriter, r *http.Request, p domain.Principal, agent *domain.Agent) {
	agent, err := s.introspectionAgent(p, agent, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	msgs, err := s.mailbox.List(agent.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agentId":  agent.ID,
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (s *Server) handleChannelStatus(w http.ResponseWriter, r *http.Request, p domain.Principal, agent *domain.Agent) {
	agent, err := s.introspectionAgent(p, agent, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agentId":  agent.ID,
		"channels": s.providers.ChannelStates(),
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request, p domain.Principal, agent *domain.Agent) {
	agent, err := s.introspectionAgent(p, agent, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	period, err := ledgerPeriod(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.ledger.Usage(agent.ID, period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleBilling(w http.ResponseWriter, r *http.Request, p domain.Principal, agent *domain.Agent) {
	agent, err := s.introspectionAgent(p, agent, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	period, err := ledgerPeriod(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.ledger.Billing(agent, period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func ledgerPeriod(r *http.Request) (ledger.Period, error) {
	return ledger.ParsePeriod(r.URL.Query().Get("period"))
}

// --- administration ---

type billingConfigRequest struct {
	AgentID string `json:"agentId"`
	Tier    string `json:"tier"`
}

func (s *Server) handleBillingConfig(w http.ResponseWriter, r *http.Request, p domain.Principal, _ *domain.Agent) {
	var req billingConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Tier == "" {
		s.writeError(w, domain.Validationf("missing required field: tier").
			WithDetail(`example: {"agentId": "3f6c0f5e-...", "tier": "starter"}`))
		return
	}
	if req.AgentID == "" && p.IsAgent() {
		req.AgentID = p.AgentID
	}
	if req.AgentID == "" {
		s.writeError(w, domain.Validationf("missing required field: agentId").
			WithDetail(`example: {"agentId": "3f6c0f5e-...", "tier": "starter"}`))
		return
	}
	if !canActFor(p, req.AgentID) {
		s.writeError(w, notAuthorizedErr(req.AgentID))
		return
	}

	a, err := s.registry.SetTier(req.AgentID, req.Tier)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"agentId": a.ID,
		"tier":    a.Tier,
	})
}

type agentLimitsRequest struct {
	Limits *domain.RateLimits `json:"limits"`
}

func (s *Server) handleAgentLimits(w http.ResponseWriter, r *http.Request, p domain.Principal, agent *domain.Agent) {
	agent, err := requireAgent(p, agent)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req agentLimitsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Limits == nil {
		s.writeError(w, domain.Validationf("missing required field: limits").
			WithDetail("agent-limits requires: limits",
				`example: {"limits": {"maxActionsPerMinute": 20, "maxActionsPerHour": 200}}`))
		return
	}

	a, err := s.registry.SetLimits(agent.ID, *req.Limits)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"agentId": a.ID,
		"limits":  a.Limits,
	})
}

type inboundRequest struct {
	AgentID string `json:"agentId"`
	Channel string `json:"channel"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

const inboundExample = `example: {"agentId": "3f6c0f5e-...", "channel": "sms", "from": "+15551234567", "body": "Hi"}`

// handleInbound is the webhook edge: provider callbacks and intake
// workers post received messages here for queuing.
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request, p domain.Principal, _ *domain.Agent) {
	if !p.IsAdmin() {
		s.writeError(w, domain.Authf("this operation requires the administrative credential").
			WithDetail("inbound delivery is reserved for provider webhooks"))
		return
	}

	var req inboundRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	for _, f := range [...]struct{ name, value string }{
		{"agentId", req.AgentID},
		{"from", req.From},
		{"body", req.Body},
	} {
		if f.value == "" {
			s.writeError(w, domain.Validationf("missing required field: %s", f.name).
				WithDetail("inbound requires: agentId, from, body", inboundExample))
			return
		}
	}

	if req.Channel == "" {
		req.Channel = string(domain.ChannelSMS)
	}
	if !domain.KnownChannel(req.Channel) {
		s.writeError(w, domain.Validationf("unknown channel: %q", req.Channel).
			WithDetail(inboundExample))
		return
	}

	if _, err := s.registry.Get(req.AgentID); err != nil {
		s.writeError(w, err)
		return
	}

	msg, err := s.mailbox.Enqueue(domain.WaitingMessage{
		AgentID: req.AgentID,
		Channel: domain.Channel(req.Channel),
		From:    req.From,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.hooks != nil {
		s.hooks.Emit(r.Context(), hooks.EventMessageReceived, map[string]any{
			"agentId": msg.AgentID,
			"channel": string(msg.Channel),
			"from":    msg.From,
			"id":      msg.ID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"messageId": msg.ID,
	})
}
