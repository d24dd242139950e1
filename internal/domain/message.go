package domain

import "time"

// WaitingMessage is an inbound message buffered for an agent until it polls.
// Delivery is at-least-once: polling peeks the queue without draining it.
type WaitingMessage struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agentId"`
	Channel    Channel   `json:"channel"`
	From       string    `json:"from"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"receivedAt"`
}
