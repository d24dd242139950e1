// Package ratelimit is the admission gate in front of the dispatcher:
// per-agent fixed windows of 60 seconds and 3600 seconds over admitted
// actions. A denied request has no side effects; counters are untouched
// and nothing reaches the ledger.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/logging"
)

const (
	minuteWindow = 60
	hourWindow   = 3600

	cleanupEvery = 10 * time.Minute
	staleAfter   = 2 * time.Hour
	maxAgents    = 10000 // max tracked agents to prevent memory exhaustion
)

type window struct {
	bucket int64
	count  int
}

type entry struct {
	minute  window
	hour    window
	touched time.Time
}

// Gate tracks per-agent admission counters.
type Gate struct {
	log *logging.Logger
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an admission gate and starts its cleanup loop.
func New(log *logging.Logger) *Gate {
	g := &Gate{
		log:     log.Sub("ratelimit"),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	go g.periodicCleanup()
	return g
}

// periodicCleanup drops agents that have not dispatched recently.
func (g *Gate) periodicCleanup() {
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()

	for range ticker.C {
		g.mu.Lock()
		cutoff := g.now().Add(-staleAfter)
		for id, e := range g.entries {
			if e.touched.Before(cutoff) {
				delete(g.entries, id)
			}
		}
		g.mu.Unlock()
	}
}

// Allow admits or denies one action for the agent under the given limits.
// On admit both windows are incremented; on deny neither is. A limit of
// zero disables that window's cap.
func (g *Gate) Allow(agentID string, limits domain.RateLimits) error {
	now := g.now()
	minuteBucket := now.Unix() / minuteWindow
	hourBucket := now.Unix() / hourWindow

	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[agentID]
	if !ok {
		if len(g.entries) >= maxAgents {
			g.evictOldestLocked()
		}
		e = &entry{}
		g.entries[agentID] = e
	}

	if e.minute.bucket != minuteBucket {
		e.minute = window{bucket: minuteBucket}
	}
	if e.hour.bucket != hourBucket {
		e.hour = window{bucket: hourBucket}
	}

	// Both windows are checked before either is incremented so a denial
	// never consumes budget.
	if limits.MaxActionsPerMinute > 0 && e.minute.count >= limits.MaxActionsPerMinute {
		g.log.Debug().Str("agent", agentID).Int("limit", limits.MaxActionsPerMinute).Msg("per-minute limit hit")
		return denied("minute", minuteWindow, limits.MaxActionsPerMinute)
	}
	if limits.MaxActionsPerHour > 0 && e.hour.count >= limits.MaxActionsPerHour {
		g.log.Debug().Str("agent", agentID).Int("limit", limits.MaxActionsPerHour).Msg("per-hour limit hit")
		return denied("hour", hourWindow, limits.MaxActionsPerHour)
	}

	e.minute.count++
	e.hour.count++
	e.touched = now
	return nil
}

func denied(name string, seconds, limit int) error {
	return domain.RateLimitedf("rate limit exceeded: %d actions per %s", limit, name).
		WithDetail(
			fmt.Sprintf("the window resets every %d seconds; denied requests are not billed", seconds),
			"raise the cap via POST /api/v1/agent-limits",
		)
}

// evictOldestLocked removes the least recently touched entry. Callers
// hold the lock.
func (g *Gate) evictOldestLocked() {
	var oldestID string
	var oldestTime time.Time
	for id, e := range g.entries {
		if oldestID == "" || e.touched.Before(oldestTime) {
			oldestID = id
			oldestTime = e.touched
		}
	}
	if oldestID != "" {
		delete(g.entries, oldestID)
	}
}
