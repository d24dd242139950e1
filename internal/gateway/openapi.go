package gateway

import "net/http"

// handleOpenAPI serves a machine-readable sketch of the REST surface.
// The document is intentionally static: route shapes only change with a
// release, and agents fetch this once during onboarding.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":       "Switchboard Gateway API",
			"description": "REST gateway for agent communication: provisioning, messaging, calls, usage and billing.",
			"version":     s.version,
		},
		"servers": []map[string]any{
			{"url": apiBase},
		},
		"paths": map[string]any{
			"/health": map[string]any{
				"get": pathSummary("Gateway health and mode", false),
			},
			"/provision": map[string]any{
				"post": pathSummary("Provision an agent and issue its security token (admin)", true),
			},
			"/onboard": map[string]any{
				"post": pathSummary("Provision an agent with a quick-start script (admin)", true),
			},
			"/deprovision": map[string]any{
				"post": pathSummary("Retire an agent and revoke its live token", true),
			},
			"/agents": map[string]any{
				"get": pathSummary("List provisioned agents (admin)", true),
			},
			"/agents/{id}/tokens": map[string]any{
				"get": pathSummary("Token issue history, redacted previews only", true),
			},
			"/agents/{id}/regenerate-token": map[string]any{
				"post": pathSummary("Atomically rotate the agent's security token", true),
			},
			"/send-message": map[string]any{
				"post": pathSummary("Send an SMS or email", true),
			},
			"/make-call": map[string]any{
				"post": pathSummary("Place an outbound voice call", true),
			},
			"/call-on-behalf": map[string]any{
				"post": pathSummary("Bridge a call between a requester and a target", true),
			},
			"/send-voice-message": map[string]any{
				"post": pathSummary("Deliver a spoken message to a phone number", true),
			},
			"/transfer-call": map[string]any{
				"post": pathSummary("Transfer an in-progress call to a new number", true),
			},
			"/waiting-messages": map[string]any{
				"get": pathSummary("Peek queued inbound messages, oldest first", true),
			},
			"/channel-status": map[string]any{
				"get": pathSummary("Per-channel availability for the calling agent", true),
			},
			"/usage": map[string]any{
				"get": pathSummary("Action counts for today, week or month", true),
			},
			"/billing": map[string]any{
				"get": pathSummary("Cost totals for today, week or month", true),
			},
			"/billing/config": map[string]any{
				"post": pathSummary("Change the agent's billing tier, prospectively", true),
			},
			"/agent-limits": map[string]any{
				"post": pathSummary("Raise or lower the agent's rate limits", true),
			},
			"/inbound": map[string]any{
				"post": pathSummary("Queue an inbound message for an agent (webhook, admin)", true),
			},
			"/events": map[string]any{
				"get": pathSummary("WebSocket stream of gateway events for the calling agent", true),
			},
			"/openapi.json": map[string]any{
				"get": pathSummary("This document", false),
			},
			"/integration-guide": map[string]any{
				"get": pathSummary("Human-readable integration guide (markdown)", false),
			},
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{
					"type":        "http",
					"scheme":      "bearer",
					"description": "Agent security token issued at provisioning, or the administrative credential.",
				},
			},
		},
	})
}

func pathSummary(summary string, secured bool) map[string]any {
	op := map[string]any{"summary": summary}
	if secured {
		op["security"] = []map[string]any{{"bearerAuth": []any{}}}
	}
	return op
}
