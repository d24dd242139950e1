// Package mailbox holds inbound messages waiting for an agent to read
// them. The queue is FIFO per agent and reading is a non-draining peek,
// so a message is delivered at least once and survives a crashed reader.
package mailbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/logging"
)

// Store persists waiting messages per agent, oldest first.
type Store interface {
	// Append adds one message to the tail of the agent's queue.
	Append(msg *domain.WaitingMessage) error

	// List returns the agent's queue, oldest first, without draining it.
	List(agentID string) ([]*domain.WaitingMessage, error)

	// Count returns the queue depth.
	Count(agentID string) (int, error)

	// TrimOldest drops messages from the head until the queue holds at
	// most keep messages.
	TrimOldest(agentID string, keep int) error
}

// Service enqueues inbound messages and enforces the per-agent backlog
// cap. A cap of zero disables trimming.
type Service struct {
	store Store
	log   *logging.Logger
	cap   int
	now   func() time.Time
}

func New(store Store, log *logging.Logger, maxPerAgent int) *Service {
	return &Service{
		store: store,
		log:   log.Sub("mailbox"),
		cap:   maxPerAgent,
		now:   time.Now,
	}
}

// Enqueue stamps identity and arrival time, appends the message and
// trims the queue back to the cap. The oldest messages are the ones
// dropped.
func (s *Service) Enqueue(msg domain.WaitingMessage) (*domain.WaitingMessage, error) {
	msg.ID = uuid.New().String()
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = s.now().UTC()
	}

	if err := s.store.Append(&msg); err != nil {
		return nil, err
	}
	if s.cap > 0 {
		if err := s.store.TrimOldest(msg.AgentID, s.cap); err != nil {
			s.log.Warn().Err(err).Str("agent", msg.AgentID).Msg("mailbox trim failed")
		}
	}

	s.log.Debug().
		Str("agent", msg.AgentID).
		Str("channel", string(msg.Channel)).
		Str("from", msg.From).
		Msg("message enqueued")
	return &msg, nil
}

// List peeks at the agent's queue, oldest first. Messages stay queued.
func (s *Service) List(agentID string) ([]*domain.WaitingMessage, error) {
	return s.store.List(agentID)
}

// Count returns the agent's queue depth.
func (s *Service) Count(agentID string) (int, error) {
	return s.store.Count(agentID)
}
