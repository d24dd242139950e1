// Package dispatch is the single entry point for agent actions. Every
// action goes through the same pipeline: shape validation against the
// required-field table, rate-limit admission, provider delivery, ledger
// append. Validation and admission failures never reach a provider or
// the ledger; admitted attempts are ledgered whether the provider
// succeeded or not.
package dispatch

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/hooks"
	"github.com/voxhollow/switchboard/internal/ledger"
	"github.com/voxhollow/switchboard/internal/logging"
	"github.com/voxhollow/switchboard/internal/provider"
	"github.com/voxhollow/switchboard/internal/ratelimit"
)

// Payload is the decoded JSON body of an action request.
type Payload map[string]any

// text returns the named field when it is a non-empty string; anything
// else counts as missing.
func (p Payload) text(name string) string {
	v, ok := p[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Outcome is the receipt for a dispatched action.
type Outcome struct {
	Action   domain.Action
	Channel  domain.Channel
	Ref      string
	Provider string
}

type actionShape struct {
	required []string
	example  string
}

// Required fields per action, checked in order; the first missing field
// fails the whole request.
var shapes = map[domain.Action]actionShape{
	domain.ActionSendMessage: {
		required: []string{"to", "body"},
		example:  `example: {"to": "+15551234567", "body": "Hello API"}`,
	},
	domain.ActionMakeCall: {
		required: []string{"to"},
		example:  `example: {"to": "+15551234567"}`,
	},
	domain.ActionCallOnBehalf: {
		required: []string{"target", "requesterPhone"},
		example:  `example: {"target": "+15551234567", "requesterPhone": "+15559876543"}`,
	},
	domain.ActionSendVoiceMessage: {
		required: []string{"to", "text"},
		example:  `example: {"to": "+15551234567", "text": "Your order is ready"}`,
	},
	domain.ActionTransferCall: {
		required: []string{"callSid", "to"},
		example:  `example: {"callSid": "CA1234567890abcdef1234567890abcdef", "to": "+15551234567"}`,
	},
}

// Dispatcher routes validated actions to channel providers.
type Dispatcher struct {
	gate      *ratelimit.Gate
	ledger    *ledger.Service
	providers *provider.Registry
	hooks     *hooks.Manager
	timeout   time.Duration
	log       *logging.Logger
}

func New(gate *ratelimit.Gate, led *ledger.Service, providers *provider.Registry, hk *hooks.Manager, timeout time.Duration, log *logging.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		gate:      gate,
		ledger:    led,
		providers: providers,
		hooks:     hk,
		timeout:   timeout,
		log:       log.Sub("dispatch"),
	}
}

// Dispatch performs one action for an already-resolved agent.
func (d *Dispatcher) Dispatch(ctx context.Context, agent *domain.Agent, action domain.Action, payload Payload) (*Outcome, error) {
	shape, ok := shapes[action]
	if !ok {
		return nil, domain.Validationf("unknown action: %q", action).
			WithDetail("recognized actions: " + joinActions())
	}

	for _, field := range shape.required {
		if payload.text(field) == "" {
			return nil, domain.Validationf("missing required field: %s", field).
				WithDetail(
					fmt.Sprintf("%s requires: %s", action, strings.Join(shape.required, ", ")),
					shape.example,
				)
		}
	}

	req, err := buildRequest(action, payload)
	if err != nil {
		return nil, err
	}
	req.AgentID = agent.ID

	if err := d.gate.Allow(agent.ID, agent.Limits); err != nil {
		return nil, err
	}

	// The request is admitted; from here every outcome is ledgered.
	receipt, sendErr := d.deliver(ctx, req)

	rec := domain.ActionRecord{
		Action:  action,
		Channel: req.Channel,
		Target:  req.To,
		Success: sendErr == nil,
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	} else {
		rec.ProviderRef = receipt.Ref
	}
	if _, lerr := d.ledger.Record(agent, rec); lerr != nil {
		// A ledger fault must not turn a delivered action into a failure.
		d.log.Error().Err(lerr).Str("agent", agent.ID).Str("action", string(action)).Msg("ledger append failed")
	}

	event := map[string]any{
		"agentId": agent.ID,
		"action":  string(action),
		"channel": string(req.Channel),
		"target":  req.To,
		"success": sendErr == nil,
	}
	if receipt != nil {
		event["ref"] = receipt.Ref
	}
	d.hooks.Emit(ctx, hooks.EventActionDispatched, event)

	if sendErr != nil {
		d.log.Warn().
			Str("agent", agent.ID).
			Str("action", string(action)).
			Str("channel", string(req.Channel)).
			Msg("dispatch failed at provider")
		return nil, sendErr
	}

	d.log.Info().
		Str("agent", agent.ID).
		Str("action", string(action)).
		Str("channel", string(req.Channel)).
		Str("ref", receipt.Ref).
		Msg("action dispatched")
	return &Outcome{
		Action:   action,
		Channel:  req.Channel,
		Ref:      receipt.Ref,
		Provider: receipt.Provider,
	}, nil
}

// deliver resolves the channel's provider and sends under the configured
// timeout.
func (d *Dispatcher) deliver(ctx context.Context, req provider.Request) (*provider.Receipt, error) {
	p, err := d.providers.Resolve(req.Channel)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return p.Send(ctx, req)
}

// buildRequest maps a validated payload onto a provider request.
func buildRequest(action domain.Action, p Payload) (provider.Request, error) {
	switch action {
	case domain.ActionSendMessage:
		to := p.text("to")
		ch, err := inferMessageChannel(to, p.text("channel"))
		if err != nil {
			return provider.Request{}, err
		}
		return provider.Request{
			Channel: ch,
			To:      to,
			Body:    p.text("body"),
			Subject: p.text("subject"),
		}, nil

	case domain.ActionMakeCall:
		return provider.Request{Channel: domain.ChannelVoiceCall, To: p.text("to")}, nil

	case domain.ActionCallOnBehalf:
		return provider.Request{
			Channel: domain.ChannelCallOnBehalf,
			To:      p.text("target"),
			From:    p.text("requesterPhone"),
		}, nil

	case domain.ActionSendVoiceMessage:
		return provider.Request{
			Channel: domain.ChannelVoiceMessage,
			To:      p.text("to"),
			Body:    p.text("text"),
		}, nil

	case domain.ActionTransferCall:
		return provider.Request{
			Channel: domain.ChannelCallTransfer,
			To:      p.text("to"),
			CallSid: p.text("callSid"),
		}, nil
	}
	return provider.Request{}, domain.Validationf("unknown action: %q", action)
}

// inferMessageChannel picks the channel for send-message: an explicit
// channel wins, otherwise an email-shaped recipient selects email and
// everything else is sms.
func inferMessageChannel(to, explicit string) (domain.Channel, error) {
	switch explicit {
	case "":
	case string(domain.ChannelSMS):
		return domain.ChannelSMS, nil
	case string(domain.ChannelEmail):
		return domain.ChannelEmail, nil
	default:
		return "", domain.Validationf("unknown channel: %q", explicit).
			WithDetail("send-message channels: sms, email")
	}

	if _, err := mail.ParseAddress(to); err == nil {
		return domain.ChannelEmail, nil
	}
	return domain.ChannelSMS, nil
}

func joinActions() string {
	names := make([]string, 0, len(domain.Actions()))
	for _, a := range domain.Actions() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}
