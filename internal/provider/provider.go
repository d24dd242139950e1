// Package provider defines the outbound delivery interface and the
// pluggable channel backends behind the dispatcher. A provider owns the
// wire protocol for one or more channels; the registry maps each channel
// to the provider configured for it.
package provider

import (
	"context"

	"github.com/voxhollow/switchboard/internal/domain"
)

// Request is one outbound delivery attempt, already validated and
// admitted by the dispatcher.
type Request struct {
	Channel domain.Channel
	AgentID string
	To      string
	Body    string
	Subject string // email only
	From    string // caller-id substitution for call-on-behalf
	CallSid string // call-transfer only
}

// Receipt reports a delivery the provider accepted.
type Receipt struct {
	Provider string
	Ref      string // provider-side id: message sid, call sid, mail id
}

// Provider is the interface all channel backends implement.
type Provider interface {
	// Name returns the backend name (e.g. "demo", "twilio").
	Name() string

	// Channels returns every channel this backend can serve.
	Channels() []domain.Channel

	// Send performs one delivery. Failures are ProviderErrors; the
	// dispatcher still ledgers the attempt.
	Send(ctx context.Context, req Request) (*Receipt, error)
}
