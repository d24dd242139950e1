package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create agents and tokens",
		SQL: `
			CREATE TABLE agents (
				id             TEXT PRIMARY KEY,
				display_name   TEXT NOT NULL,
				capabilities   TEXT,
				status         TEXT NOT NULL DEFAULT 'active',
				tier           TEXT NOT NULL DEFAULT 'free',
				max_per_minute INTEGER NOT NULL DEFAULT 0,
				max_per_hour   INTEGER NOT NULL DEFAULT 0,
				created_at     TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_agents_status ON agents (status);

			CREATE TABLE tokens (
				value      TEXT PRIMARY KEY,
				agent_id   TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
				issued_at  TEXT NOT NULL DEFAULT (datetime('now')),
				revoked_at TEXT
			);

			CREATE INDEX idx_tokens_agent ON tokens (agent_id, issued_at);
		`,
	},
	{
		Version: 2,
		Name:    "create action ledger and waiting messages",
		SQL: `
			CREATE TABLE actions (
				id           TEXT PRIMARY KEY,
				agent_id     TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
				action       TEXT NOT NULL,
				channel      TEXT NOT NULL,
				target       TEXT NOT NULL DEFAULT '',
				provider_ref TEXT NOT NULL DEFAULT '',
				success      INTEGER NOT NULL DEFAULT 0,
				error        TEXT NOT NULL DEFAULT '',
				cost         TEXT NOT NULL DEFAULT '0',
				created_at   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_actions_agent ON actions (agent_id, created_at);

			CREATE TABLE waiting_messages (
				seq         INTEGER PRIMARY KEY AUTOINCREMENT,
				id          TEXT NOT NULL UNIQUE,
				agent_id    TEXT NOT NULL,
				channel     TEXT NOT NULL,
				from_addr   TEXT NOT NULL DEFAULT '',
				subject     TEXT NOT NULL DEFAULT '',
				body        TEXT NOT NULL DEFAULT '',
				received_at TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_waiting_agent ON waiting_messages (agent_id, seq);
		`,
	},
}
