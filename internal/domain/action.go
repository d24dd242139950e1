package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActionRecord is one admitted dispatch attempt. Records are append-only:
// Cost is stamped from the agent's tier when the record is written and is
// never recomputed, so later tier changes cannot alter past bills.
type ActionRecord struct {
	ID          string          `json:"id"`
	AgentID     string          `json:"agentId"`
	Action      Action          `json:"action"`
	Channel     Channel         `json:"channel"`
	Target      string          `json:"target,omitempty"`
	ProviderRef string          `json:"providerRef,omitempty"`
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	CreatedAt   time.Time       `json:"createdAt"`
}
