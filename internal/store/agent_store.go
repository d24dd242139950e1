package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/registry"
)

// SQLiteAgentStore implements registry.Store backed by SQLite. Token
// rotation and deprovisioning run in a single transaction so a reader
// never observes two live tokens or a half-applied status flip.
type SQLiteAgentStore struct {
	db *DB
}

// NewSQLiteAgentStore creates an agent store using the given database.
func NewSQLiteAgentStore(db *DB) *SQLiteAgentStore {
	return &SQLiteAgentStore{db: db}
}

const agentColumns = "id, display_name, capabilities, status, tier, max_per_minute, max_per_hour, created_at"

// CreateAgent inserts the agent and its first token in one transaction.
func (s *SQLiteAgentStore) CreateAgent(agent *domain.Agent, tok domain.SecurityToken) error {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin create agent: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO agents (id, display_name, capabilities, status, tier, max_per_minute, max_per_hour, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.DisplayName, capabilitiesJSON(agent.Capabilities),
		string(agent.Status), string(agent.Tier),
		agent.Limits.MaxActionsPerMinute, agent.Limits.MaxActionsPerHour,
		agent.CreatedAt.UTC().Format(time.DateTime),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting agent: %w", err)
	}

	if err := insertToken(tx, tok); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// GetAgent returns the agent by id, or registry.ErrAgentNotFound.
func (s *SQLiteAgentStore) GetAgent(agentID string) (*domain.Agent, error) {
	row := s.db.sql.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE id = ?`, agentID)

	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, registry.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading agent: %w", err)
	}
	return a, nil
}

// ListAgents returns all agents ordered by creation time.
func (s *SQLiteAgentStore) ListAgents() ([]*domain.Agent, error) {
	rows, err := s.db.sql.Query(`SELECT ` + agentColumns + ` FROM agents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAgent persists the agent's mutable fields.
func (s *SQLiteAgentStore) UpdateAgent(agent *domain.Agent) error {
	res, err := s.db.sql.Exec(
		`UPDATE agents
		 SET display_name = ?, capabilities = ?, status = ?, tier = ?, max_per_minute = ?, max_per_hour = ?
		 WHERE id = ?`,
		agent.DisplayName, capabilitiesJSON(agent.Capabilities),
		string(agent.Status), string(agent.Tier),
		agent.Limits.MaxActionsPerMinute, agent.Limits.MaxActionsPerHour,
		agent.ID,
	)
	if err != nil {
		return fmt.Errorf("updating agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return registry.ErrAgentNotFound
	}
	return nil
}

// ResolveToken returns the active agent a live token belongs to. Unknown
// values, revoked tokens and deprovisioned agents all come back as
// registry.ErrTokenNotLive.
func (s *SQLiteAgentStore) ResolveToken(value string) (*domain.Agent, error) {
	row := s.db.sql.QueryRow(
		`SELECT a.id, a.display_name, a.capabilities, a.status, a.tier, a.max_per_minute, a.max_per_hour, a.created_at
		 FROM tokens t
		 JOIN agents a ON a.id = t.agent_id
		 WHERE t.value = ? AND t.revoked_at IS NULL AND a.status = ?`,
		value, string(domain.StatusActive),
	)

	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, registry.ErrTokenNotLive
	}
	if err != nil {
		return nil, fmt.Errorf("resolving token: %w", err)
	}
	return a, nil
}

// AgentTokens returns every token issued to the agent, oldest first.
func (s *SQLiteAgentStore) AgentTokens(agentID string) ([]domain.SecurityToken, error) {
	if err := s.agentExists(agentID); err != nil {
		return nil, err
	}

	rows, err := s.db.sql.Query(
		`SELECT value, agent_id, issued_at, revoked_at
		 FROM tokens WHERE agent_id = ? ORDER BY issued_at, rowid`, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing tokens: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SecurityToken, 0)
	for rows.Next() {
		var t domain.SecurityToken
		var issuedAt string
		var revokedAt sql.NullString

		if err := rows.Scan(&t.Value, &t.AgentID, &issuedAt, &revokedAt); err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		t.IssuedAt, _ = time.Parse(time.DateTime, issuedAt)
		if revokedAt.Valid {
			rt, _ := time.Parse(time.DateTime, revokedAt.String)
			t.RevokedAt = &rt
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RotateToken revokes the agent's live tokens and inserts tok in one
// transaction. The old tokens are stamped revoked at the new token's
// issue time.
func (s *SQLiteAgentStore) RotateToken(agentID string, tok domain.SecurityToken) error {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin rotate token: %w", err)
	}

	if err := agentExistsTx(tx, agentID); err != nil {
		tx.Rollback()
		return err
	}

	if _, err := tx.Exec(
		`UPDATE tokens SET revoked_at = ? WHERE agent_id = ? AND revoked_at IS NULL`,
		tok.IssuedAt.UTC().Format(time.DateTime), agentID,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("revoking live tokens: %w", err)
	}

	if err := insertToken(tx, tok); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Deprovision flips the agent to deprovisioned status and revokes its live
// tokens in one transaction.
func (s *SQLiteAgentStore) Deprovision(agentID string, at time.Time) error {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin deprovision: %w", err)
	}

	res, err := tx.Exec(
		`UPDATE agents SET status = ? WHERE id = ?`,
		string(domain.StatusDeprovisioned), agentID,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("flipping agent status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return registry.ErrAgentNotFound
	}

	if _, err := tx.Exec(
		`UPDATE tokens SET revoked_at = ? WHERE agent_id = ? AND revoked_at IS NULL`,
		at.UTC().Format(time.DateTime), agentID,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("revoking live tokens: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteAgentStore) agentExists(agentID string) error {
	var count int
	if err := s.db.sql.QueryRow(`SELECT COUNT(*) FROM agents WHERE id = ?`, agentID).Scan(&count); err != nil {
		return fmt.Errorf("checking agent: %w", err)
	}
	if count == 0 {
		return registry.ErrAgentNotFound
	}
	return nil
}

func agentExistsTx(tx *sql.Tx, agentID string) error {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM agents WHERE id = ?`, agentID).Scan(&count); err != nil {
		return fmt.Errorf("checking agent: %w", err)
	}
	if count == 0 {
		return registry.ErrAgentNotFound
	}
	return nil
}

func insertToken(tx *sql.Tx, tok domain.SecurityToken) error {
	var revokedAt sql.NullString
	if tok.RevokedAt != nil {
		revokedAt = sql.NullString{String: tok.RevokedAt.UTC().Format(time.DateTime), Valid: true}
	}

	if _, err := tx.Exec(
		`INSERT INTO tokens (value, agent_id, issued_at, revoked_at) VALUES (?, ?, ?, ?)`,
		tok.Value, tok.AgentID, tok.IssuedAt.UTC().Format(time.DateTime), revokedAt,
	); err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var a domain.Agent
	var caps sql.NullString
	var status, tier, createdAt string

	if err := row.Scan(
		&a.ID, &a.DisplayName, &caps, &status, &tier,
		&a.Limits.MaxActionsPerMinute, &a.Limits.MaxActionsPerHour, &createdAt,
	); err != nil {
		return nil, err
	}

	a.Status = domain.AgentStatus(status)
	a.Tier = domain.Tier(tier)
	a.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	if caps.Valid && caps.String != "" {
		_ = json.Unmarshal([]byte(caps.String), &a.Capabilities)
	}
	return &a, nil
}

func capabilitiesJSON(caps map[string]bool) sql.NullString {
	if len(caps) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(caps)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}
