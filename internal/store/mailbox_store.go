package store

import (
	"fmt"
	"time"

	"github.com/voxhollow/switchboard/internal/domain"
)

// SQLiteMailboxStore implements mailbox.Store backed by SQLite. Queue
// order rides on the autoincrement seq column, so FIFO survives restarts.
type SQLiteMailboxStore struct {
	db *DB
}

// NewSQLiteMailboxStore creates a mailbox store using the given database.
func NewSQLiteMailboxStore(db *DB) *SQLiteMailboxStore {
	return &SQLiteMailboxStore{db: db}
}

// Append adds one message to the tail of the agent's queue.
func (s *SQLiteMailboxStore) Append(msg *domain.WaitingMessage) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO waiting_messages (id, agent_id, channel, from_addr, subject, body, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.AgentID, string(msg.Channel), msg.From, msg.Subject, msg.Body,
		msg.ReceivedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("appending waiting message: %w", err)
	}
	return nil
}

// List returns the agent's queue, oldest first, without draining it.
func (s *SQLiteMailboxStore) List(agentID string) ([]*domain.WaitingMessage, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, agent_id, channel, from_addr, subject, body, received_at
		 FROM waiting_messages WHERE agent_id = ? ORDER BY seq`, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing waiting messages: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.WaitingMessage, 0)
	for rows.Next() {
		var msg domain.WaitingMessage
		var channel, receivedAt string

		if err := rows.Scan(&msg.ID, &msg.AgentID, &channel, &msg.From, &msg.Subject, &msg.Body, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning waiting message: %w", err)
		}
		msg.Channel = domain.Channel(channel)
		msg.ReceivedAt, _ = time.Parse(time.DateTime, receivedAt)

		out = append(out, &msg)
	}
	return out, rows.Err()
}

// Count returns the queue depth.
func (s *SQLiteMailboxStore) Count(agentID string) (int, error) {
	var count int
	err := s.db.sql.QueryRow(
		`SELECT COUNT(*) FROM waiting_messages WHERE agent_id = ?`, agentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting waiting messages: %w", err)
	}
	return count, nil
}

// TrimOldest drops messages from the head until the queue holds at most
// keep messages.
func (s *SQLiteMailboxStore) TrimOldest(agentID string, keep int) error {
	_, err := s.db.sql.Exec(
		`DELETE FROM waiting_messages
		 WHERE agent_id = ? AND seq NOT IN (
			SELECT seq FROM waiting_messages WHERE agent_id = ? ORDER BY seq DESC LIMIT ?
		 )`,
		agentID, agentID, keep,
	)
	if err != nil {
		return fmt.Errorf("trimming waiting messages: %w", err)
	}
	return nil
}
