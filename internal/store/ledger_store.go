package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxhollow/switchboard/internal/domain"
)

// SQLiteLedgerStore implements ledger.Store backed by SQLite. The actions
// table is append-only; nothing updates or deletes rows.
type SQLiteLedgerStore struct {
	db *DB
}

// NewSQLiteLedgerStore creates a ledger store using the given database.
func NewSQLiteLedgerStore(db *DB) *SQLiteLedgerStore {
	return &SQLiteLedgerStore{db: db}
}

// Append writes one action record. Cost is stored as its decimal string so
// no float rounding ever touches a billed amount.
func (s *SQLiteLedgerStore) Append(rec *domain.ActionRecord) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO actions (id, agent_id, action, channel, target, provider_ref, success, error, cost, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentID, string(rec.Action), string(rec.Channel), rec.Target,
		rec.ProviderRef, rec.Success, rec.Error, rec.Cost.String(),
		rec.CreatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("appending action: %w", err)
	}
	return nil
}

// ListSince returns the agent's records with created_at >= since, oldest
// first. Rows written in the same second keep their insert order.
func (s *SQLiteLedgerStore) ListSince(agentID string, since time.Time) ([]*domain.ActionRecord, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, agent_id, action, channel, target, provider_ref, success, error, cost, created_at
		 FROM actions WHERE agent_id = ? AND created_at >= ?
		 ORDER BY created_at, rowid`,
		agentID, since.UTC().Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.ActionRecord, 0)
	for rows.Next() {
		var rec domain.ActionRecord
		var action, channel, cost, createdAt string

		if err := rows.Scan(
			&rec.ID, &rec.AgentID, &action, &channel, &rec.Target,
			&rec.ProviderRef, &rec.Success, &rec.Error, &cost, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}

		rec.Action = domain.Action(action)
		rec.Channel = domain.Channel(channel)
		c, err := decimal.NewFromString(cost)
		if err != nil {
			return nil, fmt.Errorf("parsing cost: %w", err)
		}
		rec.Cost = c
		rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)

		out = append(out, &rec)
	}
	return out, rows.Err()
}
