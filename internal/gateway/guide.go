package gateway

import "net/http"

// handleIntegrationGuide serves the agent-facing quick-start as markdown.
func (s *Server) handleIntegrationGuide(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(integrationGuide))
}

const integrationGuide = `# Switchboard Integration Guide

Switchboard is a REST gateway that lets an agent send messages, place
calls and read replies over a single bearer credential.

## 1. Get provisioned

An operator provisions you with the administrative credential:

    POST /api/v1/provision
    Authorization: Bearer <adminToken>
    {"displayName": "Support Bot", "capabilities": {"phone": true, "email": true}}

The response contains your agentId and securityToken. The token is shown
exactly once; store it now. Listings only ever show a redacted preview.

## 2. Authenticate

Send the token on every request:

    Authorization: Bearer <securityToken>

In demo mode requests without a token fall back to a shared demo agent,
so you can explore the API before provisioning.

## 3. Send your first message

    POST /api/v1/send-message
    {"to": "+15551234567", "body": "Hello from my agent"}

The channel is inferred from the target: phone numbers go out as SMS,
addresses with an @ as email. Pass "channel" to override.

## 4. Place calls

    POST /api/v1/make-call          {"to": "+15551234567"}
    POST /api/v1/send-voice-message {"to": "+15551234567", "text": "Your order is ready"}
    POST /api/v1/call-on-behalf     {"target": "+15551234567", "requesterPhone": "+15559876543"}
    POST /api/v1/transfer-call      {"callSid": "CA...", "to": "+15551234567"}

## 5. Read replies

Inbound messages queue up until you poll:

    GET /api/v1/waiting-messages

Polling peeks without draining, so re-read until you have processed
everything. Prefer push? Open a WebSocket at /api/v1/events.

## 6. Watch your spend

    GET /api/v1/usage?period=today
    GET /api/v1/billing?period=month

Periods are today, week (since Monday) and month. Costs are stamped when
an action dispatches; changing tiers never rewrites history.

## 7. Rotate your credential

    POST /api/v1/agents/{agentId}/regenerate-token

The old token dies the instant the new one is issued.

## Errors

Failures return a single "error" field. The first line names the
problem; later lines carry examples and hints:

    {"error": "missing required field: to\nsend-message requires: to, body\nexample: {\"to\": \"+15551234567\", \"body\": \"Hello API\"}"}

| Status | Meaning |
|--------|---------|
| 400    | Malformed request, unknown field value, or dead token |
| 401    | Missing or wrong credential for this operation |
| 404    | Agent does not exist |
| 429    | Rate limit hit; the response names the window |
| 502    | The upstream provider failed; nothing was charged |
`
