package provider

import (
	"sort"
	"sync"

	"github.com/voxhollow/switchboard/internal/config"
	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/logging"
)

// Registry maps channels to the providers configured to serve them.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	byChannel map[domain.Channel]string
	log       *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		byChannel: make(map[domain.Channel]string),
		log:       log.Sub("provider.registry"),
	}
}

// Register adds a provider under its own name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	r.log.Info().Str("provider", p.Name()).Msg("registered provider")
}

// Bind routes a channel to a named provider. A later bind overrides an
// earlier one.
func (r *Registry) Bind(ch domain.Channel, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byChannel[ch] = name
}

// BindAll routes every channel the provider serves to it.
func (r *Registry) BindAll(p Provider) {
	for _, ch := range p.Channels() {
		r.Bind(ch, p.Name())
	}
}

// Resolve returns the provider bound to the channel.
func (r *Registry) Resolve(ch domain.Channel) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.byChannel[ch]
	if !ok {
		return nil, domain.Providerf("no provider is configured for channel %q", ch)
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, domain.Providerf("channel %q is bound to unknown provider %q", ch, name)
	}
	return p, nil
}

// ChannelStates reports availability for every known channel, for the
// channel-status projection.
func (r *Registry) ChannelStates() map[domain.Channel]domain.ChannelState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[domain.Channel]domain.ChannelState, len(domain.Channels()))
	for _, ch := range domain.Channels() {
		name, ok := r.byChannel[ch]
		out[ch] = domain.ChannelState{Available: ok, Provider: name}
	}
	return out
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds a registry from the providers section of
// the config. Demo backends need no credentials; live backends are
// constructed from their config blocks. Channels whose backend is left
// unconfigured stay unbound and report unavailable.
func NewRegistryFromConfig(cfg config.ProvidersConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)

	if cfg.SMS == "demo" || cfg.SMS == "" || cfg.Voice == "demo" || cfg.Voice == "" || cfg.Email == "demo" || cfg.Email == "" {
		reg.Register(NewDemo())
	}
	if cfg.SMS == "twilio" || cfg.Voice == "twilio" {
		reg.Register(NewTwilio(cfg.Twilio, log))
	}

	switch cfg.SMS {
	case "demo", "":
		reg.Bind(domain.ChannelSMS, "demo")
	case "twilio":
		reg.Bind(domain.ChannelSMS, "twilio")
	}

	switch cfg.Voice {
	case "demo", "":
		for _, ch := range voiceChannels {
			reg.Bind(ch, "demo")
		}
	case "twilio":
		for _, ch := range voiceChannels {
			reg.Bind(ch, "twilio")
		}
	}

	switch cfg.Email {
	case "demo", "":
		reg.Bind(domain.ChannelEmail, "demo")
	case "smtp":
		reg.Register(NewSMTP(cfg.SMTP, log))
		reg.Bind(domain.ChannelEmail, "smtp")
	case "gmail":
		gm, err := NewGmail(cfg.Gmail, log)
		if err != nil {
			return nil, err
		}
		reg.Register(gm)
		reg.Bind(domain.ChannelEmail, "gmail")
	}

	return reg, nil
}

var voiceChannels = []domain.Channel{
	domain.ChannelVoiceCall,
	domain.ChannelVoiceMessage,
	domain.ChannelCallTransfer,
	domain.ChannelCallOnBehalf,
}
