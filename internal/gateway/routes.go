package gateway

import (
	"net/http"

	"github.com/voxhollow/switchboard/internal/domain"
)

// apiBase prefixes every versioned route.
const apiBase = "/api/v1"

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Unauthenticated surface
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET "+apiBase+"/health", s.handleHealth)
	mux.HandleFunc("GET "+apiBase+"/openapi.json", s.handleOpenAPI)
	mux.HandleFunc("GET "+apiBase+"/integration-guide", s.handleIntegrationGuide)

	// Lifecycle
	mux.HandleFunc("POST "+apiBase+"/provision", s.protected(s.handleProvision))
	mux.HandleFunc("POST "+apiBase+"/onboard", s.protected(s.handleOnboard))
	mux.HandleFunc("POST "+apiBase+"/deprovision", s.protected(s.handleDeprovision))
	mux.HandleFunc("GET "+apiBase+"/agents", s.protected(s.handleAgentsList))
	mux.HandleFunc("GET "+apiBase+"/agents/{id}/tokens", s.protected(s.handleAgentTokens))
	mux.HandleFunc("POST "+apiBase+"/agents/{id}/regenerate-token", s.protected(s.handleRegenerateToken))

	// Actions
	mux.HandleFunc("POST "+apiBase+"/send-message", s.protected(s.action(domain.ActionSendMessage)))
	mux.HandleFunc("POST "+apiBase+"/make-call", s.protected(s.action(domain.ActionMakeCall)))
	mux.HandleFunc("POST "+apiBase+"/call-on-behalf", s.protected(s.action(domain.ActionCallOnBehalf)))
	mux.HandleFunc("POST "+apiBase+"/send-voice-message", s.protected(s.action(domain.ActionSendVoiceMessage)))
	mux.HandleFunc("POST "+apiBase+"/transfer-call", s.protected(s.action(domain.ActionTransferCall)))

	// Introspection
	mux.HandleFunc("GET "+apiBase+"/waiting-messages", s.protected(s.handleWaitingMessages))
	mux.HandleFunc("GET "+apiBase+"/channel-status", s.protected(s.handleChannelStatus))
	mux.HandleFunc("GET "+apiBase+"/usage", s.protected(s.handleUsage))
	mux.HandleFunc("GET "+apiBase+"/billing", s.protected(s.handleBilling))

	// Administration
	mux.HandleFunc("POST "+apiBase+"/billing/config", s.protected(s.handleBillingConfig))
	mux.HandleFunc("POST "+apiBase+"/agent-limits", s.protected(s.handleAgentLimits))
	mux.HandleFunc("POST "+apiBase+"/inbound", s.protected(s.handleInbound))

	// Event stream
	mux.HandleFunc("GET "+apiBase+"/events", s.handleEvents)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}
