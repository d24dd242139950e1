package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/hooks"
	"github.com/voxhollow/switchboard/internal/logging"
)

// ErrClientClosed is returned when writing to a closed event stream.
var ErrClientClosed = errors.New("event stream closed")

const maxEventFrameBytes = 4 * 1024 * 1024

// eventFrame is one pushed event on the stream.
type eventFrame struct {
	Event string         `json:"event"`
	Seq   int64          `json:"seq"`
	Ts    int64          `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

// eventClient is one connected WebSocket subscriber.
type eventClient struct {
	connID  string
	agentID string
	socket  *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// send writes a frame to the client. Thread-safe.
func (c *eventClient) send(frame eventFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	return c.socket.WriteJSON(frame)
}

func (c *eventClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.socket.Close()
}

// eventHub fans hook events out to connected subscribers. Events carrying
// an agentId go only to that agent's connections; the rest broadcast.
type eventHub struct {
	mu      sync.RWMutex
	clients map[string]*eventClient // connID → client
	seq     atomic.Int64
	log     *logging.Logger
}

func newEventHub(log *logging.Logger) *eventHub {
	return &eventHub{
		clients: make(map[string]*eventClient),
		log:     log,
	}
}

func (h *eventHub) add(c *eventClient) {
	h.mu.Lock()
	h.clients[c.connID] = c
	h.mu.Unlock()
	h.log.Info().Str("connId", c.connID).Str("agent", c.agentID).Msg("event subscriber connected")
}

func (h *eventHub) remove(connID string) {
	h.mu.Lock()
	delete(h.clients, connID)
	h.mu.Unlock()
}

func (h *eventHub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects every subscriber. Used on shutdown.
func (h *eventHub) closeAll() {
	h.mu.Lock()
	clients := make([]*eventClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*eventClient)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// publish delivers one event to its audience.
func (h *eventHub) publish(event string, data map[string]any) {
	agentID, _ := data["agentId"].(string)

	frame := eventFrame{
		Event: event,
		Seq:   h.seq.Add(1),
		Ts:    time.Now().UnixMilli(),
		Data:  data,
	}

	h.mu.RLock()
	targets := make([]*eventClient, 0, len(h.clients))
	for _, c := range h.clients {
		if agentID == "" || c.agentID == agentID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(frame); err != nil && !errors.Is(err, ErrClientClosed) {
			h.log.Debug().Err(err).Str("connId", c.connID).Msg("event send failed")
		}
	}
}

// bind subscribes the hub to every hook event.
func (h *eventHub) bind(hm *hooks.Manager) {
	for _, event := range hooks.AllEvents {
		hm.On(event, "event-stream", func(_ context.Context, p hooks.Payload) error {
			h.publish(p.Event, p.Data)
			return nil
		})
	}
}

// handleEvents upgrades the connection to a WebSocket and streams events
// scoped to the calling agent until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.authLimiter.allow(r.RemoteAddr) {
		s.writeError(w, domain.RateLimitedf("too many failed authentication attempts").
			WithDetail("wait a few minutes before retrying"))
		return
	}

	p, agent, err := s.authenticate(r)
	if err != nil {
		s.authLimiter.recordFailure(r.RemoteAddr)
		s.writeError(w, err)
		return
	}
	agent, err = requireAgent(p, agent)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxEventFrameBytes)

	client := &eventClient{
		connID:  uuid.New().String(),
		agentID: agent.ID,
		socket:  conn,
	}
	s.events.add(client)
	defer func() {
		s.events.remove(client.connID)
		client.close()
	}()

	// Greet the subscriber so it knows the stream is live before any
	// event fires.
	connected := eventFrame{
		Event: "stream.connected",
		Seq:   s.events.seq.Add(1),
		Ts:    time.Now().UnixMilli(),
		Data:  map[string]any{"agentId": agent.ID},
	}
	if err := client.send(connected); err != nil {
		return
	}

	// Discard inbound frames; the stream is push-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
