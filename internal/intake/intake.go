// Package intake runs inbound-message sources. A source watches some
// external inbox and feeds what arrives into an agent's waiting-messages
// queue.
package intake

import (
	"context"
	"sync"

	"github.com/voxhollow/switchboard/internal/logging"
)

// Source produces inbound messages for agent mailboxes.
type Source interface {
	// ID identifies the source in logs and the registry.
	ID() string

	// Start runs the source until the context is canceled or Stop is
	// called. It may block.
	Start(ctx context.Context) error

	// Stop shuts the source down.
	Stop(ctx context.Context) error
}

// Registry manages a set of intake sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
	log     *logging.Logger
}

// NewRegistry creates a source registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		sources: make(map[string]Source),
		log:     log.Sub("intake"),
	}
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.ID()] = s
	r.log.Info().Str("source", s.ID()).Msg("intake source registered")
}

// Get returns a source by ID.
func (r *Registry) Get(id string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	return s, ok
}

// List returns all source IDs.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	return ids
}

// StartAll starts all registered sources in background goroutines.
// Source Start methods block (pollers loop), so each is launched
// concurrently to avoid preventing subsequent initialization.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, s := range r.sources {
		r.log.Info().Str("source", id).Msg("starting intake source")
		go func(id string, s Source) {
			if err := s.Start(ctx); err != nil {
				r.log.Error().Err(err).Str("source", id).Msg("intake source exited with error")
			}
		}(id, s)
	}
	return nil
}

// StopAll stops all registered sources.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, s := range r.sources {
		r.log.Info().Str("source", id).Msg("stopping intake source")
		if err := s.Stop(ctx); err != nil {
			r.log.Error().Err(err).Str("source", id).Msg("failed to stop intake source")
		}
	}
}

// Count returns the number of registered sources.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
