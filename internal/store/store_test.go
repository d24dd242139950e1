package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/logging"
	"github.com/voxhollow/switchboard/internal/registry"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testAgent(id string) *domain.Agent {
	return &domain.Agent{
		ID:           id,
		DisplayName:  "Test Agent",
		Capabilities: map[string]bool{"sms": true, "email": true},
		Status:       domain.StatusActive,
		Tier:         domain.TierStarter,
		Limits:       domain.RateLimits{MaxActionsPerMinute: 10, MaxActionsPerHour: 100},
		CreatedAt:    time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
}

func testToken(agentID, value string, issued time.Time) domain.SecurityToken {
	return domain.SecurityToken{Value: value, AgentID: agentID, IssuedAt: issued}
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"agents", "tokens", "actions", "waiting_messages"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Agent store tests ---

func TestAgentStore_CreateAndGet(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	agent := testAgent("agent-1")
	tok := testToken("agent-1", "tok-aaa", agent.CreatedAt)
	require.NoError(t, s.CreateAgent(agent, tok))

	got, err := s.GetAgent("agent-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", got.ID)
	assert.Equal(t, "Test Agent", got.DisplayName)
	assert.Equal(t, map[string]bool{"sms": true, "email": true}, got.Capabilities)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Equal(t, domain.TierStarter, got.Tier)
	assert.Equal(t, 10, got.Limits.MaxActionsPerMinute)
	assert.Equal(t, 100, got.Limits.MaxActionsPerHour)
	assert.True(t, got.CreatedAt.Equal(agent.CreatedAt))
}

func TestAgentStore_GetAgent_NotFound(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	_, err := s.GetAgent("nope")
	assert.ErrorIs(t, err, registry.ErrAgentNotFound)
}

func TestAgentStore_ListAgents_Ordered(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	second := testAgent("agent-b")
	second.CreatedAt = second.CreatedAt.Add(time.Minute)
	require.NoError(t, s.CreateAgent(second, testToken("agent-b", "tok-b", second.CreatedAt)))

	first := testAgent("agent-a")
	require.NoError(t, s.CreateAgent(first, testToken("agent-a", "tok-a", first.CreatedAt)))

	agents, err := s.ListAgents()
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "agent-a", agents[0].ID)
	assert.Equal(t, "agent-b", agents[1].ID)
}

func TestAgentStore_UpdateAgent(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	agent := testAgent("agent-1")
	require.NoError(t, s.CreateAgent(agent, testToken("agent-1", "tok-aaa", agent.CreatedAt)))

	agent.Tier = domain.TierPro
	agent.Limits = domain.RateLimits{MaxActionsPerMinute: 30, MaxActionsPerHour: 500}
	agent.Capabilities = map[string]bool{"voice-call": true}
	require.NoError(t, s.UpdateAgent(agent))

	got, err := s.GetAgent("agent-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierPro, got.Tier)
	assert.Equal(t, 30, got.Limits.MaxActionsPerMinute)
	assert.Equal(t, 500, got.Limits.MaxActionsPerHour)
	assert.Equal(t, map[string]bool{"voice-call": true}, got.Capabilities)
}

func TestAgentStore_UpdateAgent_NotFound(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	err := s.UpdateAgent(testAgent("ghost"))
	assert.ErrorIs(t, err, registry.ErrAgentNotFound)
}

func TestAgentStore_ResolveToken(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	agent := testAgent("agent-1")
	require.NoError(t, s.CreateAgent(agent, testToken("agent-1", "tok-aaa", agent.CreatedAt)))

	got, err := s.ResolveToken("tok-aaa")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", got.ID)

	_, err = s.ResolveToken("tok-unknown")
	assert.ErrorIs(t, err, registry.ErrTokenNotLive)
}

func TestAgentStore_RotateToken(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	agent := testAgent("agent-1")
	issued := agent.CreatedAt
	require.NoError(t, s.CreateAgent(agent, testToken("agent-1", "tok-old", issued)))

	rotatedAt := issued.Add(2 * time.Hour)
	require.NoError(t, s.RotateToken("agent-1", testToken("agent-1", "tok-new", rotatedAt)))

	_, err := s.ResolveToken("tok-old")
	assert.ErrorIs(t, err, registry.ErrTokenNotLive)

	got, err := s.ResolveToken("tok-new")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", got.ID)

	toks, err := s.AgentTokens("agent-1")
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "tok-old", toks[0].Value)
	require.NotNil(t, toks[0].RevokedAt)
	assert.True(t, toks[0].RevokedAt.Equal(rotatedAt))
	assert.Equal(t, "tok-new", toks[1].Value)
	assert.True(t, toks[1].Live())
}

func TestAgentStore_RotateToken_NotFound(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	err := s.RotateToken("ghost", testToken("ghost", "tok-x", time.Now()))
	assert.ErrorIs(t, err, registry.ErrAgentNotFound)
}

func TestAgentStore_Deprovision(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	agent := testAgent("agent-1")
	require.NoError(t, s.CreateAgent(agent, testToken("agent-1", "tok-aaa", agent.CreatedAt)))

	at := agent.CreatedAt.Add(time.Hour)
	require.NoError(t, s.Deprovision("agent-1", at))

	got, err := s.GetAgent("agent-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeprovisioned, got.Status)

	// A revoked token of a dead agent must not resolve.
	_, err = s.ResolveToken("tok-aaa")
	assert.ErrorIs(t, err, registry.ErrTokenNotLive)

	toks, err := s.AgentTokens("agent-1")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.NotNil(t, toks[0].RevokedAt)
	assert.True(t, toks[0].RevokedAt.Equal(at))
}

func TestAgentStore_Deprovision_NotFound(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	err := s.Deprovision("ghost", time.Now())
	assert.ErrorIs(t, err, registry.ErrAgentNotFound)
}

func TestAgentStore_AgentTokens_NotFound(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	_, err := s.AgentTokens("ghost")
	assert.ErrorIs(t, err, registry.ErrAgentNotFound)
}

func TestAgentStore_NoCapabilities(t *testing.T) {
	s := NewSQLiteAgentStore(testDB(t))

	agent := testAgent("agent-1")
	agent.Capabilities = nil
	require.NoError(t, s.CreateAgent(agent, testToken("agent-1", "tok-aaa", agent.CreatedAt)))

	got, err := s.GetAgent("agent-1")
	require.NoError(t, err)
	assert.Nil(t, got.Capabilities)
}

// --- Ledger store tests ---

func seedAgent(t *testing.T, db *DB, id string) {
	t.Helper()
	agents := NewSQLiteAgentStore(db)
	agent := testAgent(id)
	require.NoError(t, agents.CreateAgent(agent, testToken(id, "tok-"+id, agent.CreatedAt)))
}

func TestLedgerStore_AppendAndListSince(t *testing.T) {
	db := testDB(t)
	seedAgent(t, db, "agent-1")
	s := NewSQLiteLedgerStore(db)

	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	records := []*domain.ActionRecord{
		{
			ID: "rec-1", AgentID: "agent-1", Action: domain.ActionSendMessage,
			Channel: domain.ChannelSMS, Target: "+15551230001", ProviderRef: "SM01",
			Success: true, Cost: decimal.RequireFromString("0.0075"), CreatedAt: base,
		},
		{
			ID: "rec-2", AgentID: "agent-1", Action: domain.ActionMakeCall,
			Channel: domain.ChannelVoiceCall, Target: "+15551230002",
			Success: false, Error: "twilio: API error (503)", Cost: decimal.Zero,
			CreatedAt: base.Add(time.Minute),
		},
		{
			ID: "rec-3", AgentID: "agent-1", Action: domain.ActionSendMessage,
			Channel: domain.ChannelEmail, Target: "ops@example.com", ProviderRef: "SM02",
			Success: true, Cost: decimal.RequireFromString("0.0002"), CreatedAt: base.Add(2 * time.Minute),
		},
	}
	for _, rec := range records {
		require.NoError(t, s.Append(rec))
	}

	all, err := s.ListSince("agent-1", base)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "rec-1", all[0].ID)
	assert.Equal(t, "rec-3", all[2].ID)

	// Cost survives the round trip exactly.
	assert.True(t, all[0].Cost.Equal(decimal.RequireFromString("0.0075")))
	assert.True(t, all[0].Success)
	assert.False(t, all[1].Success)
	assert.Equal(t, "twilio: API error (503)", all[1].Error)
	assert.Equal(t, domain.ChannelEmail, all[2].Channel)
	assert.True(t, all[0].CreatedAt.Equal(base))

	// since filters out older rows.
	recent, err := s.ListSince("agent-1", base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "rec-2", recent[0].ID)
}

func TestLedgerStore_SameSecondKeepsInsertOrder(t *testing.T) {
	db := testDB(t)
	seedAgent(t, db, "agent-1")
	s := NewSQLiteLedgerStore(db)

	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"rec-a", "rec-b", "rec-c"} {
		require.NoError(t, s.Append(&domain.ActionRecord{
			ID: id, AgentID: "agent-1", Action: domain.ActionSendMessage,
			Channel: domain.ChannelSMS, Success: true, Cost: decimal.Zero, CreatedAt: at,
		}))
	}

	all, err := s.ListSince("agent-1", at)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "rec-a", all[0].ID)
	assert.Equal(t, "rec-b", all[1].ID)
	assert.Equal(t, "rec-c", all[2].ID)
}

func TestLedgerStore_AgentIsolation(t *testing.T) {
	db := testDB(t)
	seedAgent(t, db, "agent-1")
	seedAgent(t, db, "agent-2")
	s := NewSQLiteLedgerStore(db)

	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Append(&domain.ActionRecord{
		ID: "rec-1", AgentID: "agent-1", Action: domain.ActionSendMessage,
		Channel: domain.ChannelSMS, Success: true, Cost: decimal.Zero, CreatedAt: at,
	}))

	other, err := s.ListSince("agent-2", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

// --- Mailbox store tests ---

func TestMailboxStore_FIFO(t *testing.T) {
	s := NewSQLiteMailboxStore(testDB(t))

	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"msg-1", "msg-2", "msg-3"} {
		require.NoError(t, s.Append(&domain.WaitingMessage{
			ID: id, AgentID: "agent-1", Channel: domain.ChannelEmail,
			From: "alice@example.com", Subject: "hello", Body: "ping",
			ReceivedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	msgs, err := s.List("agent-1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg-1", msgs[0].ID)
	assert.Equal(t, "msg-3", msgs[2].ID)
	assert.Equal(t, "alice@example.com", msgs[0].From)
	assert.Equal(t, "hello", msgs[0].Subject)
	assert.True(t, msgs[0].ReceivedAt.Equal(base))

	// Listing does not drain.
	count, err := s.Count("agent-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMailboxStore_TrimOldest(t *testing.T) {
	s := NewSQLiteMailboxStore(testDB(t))

	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Append(&domain.WaitingMessage{
			ID: fmt.Sprintf("msg-%d", i), AgentID: "agent-1", Channel: domain.ChannelSMS,
			From: "+15551230001", Body: "ping", ReceivedAt: base,
		}))
	}
	require.NoError(t, s.Append(&domain.WaitingMessage{
		ID: "other-1", AgentID: "agent-2", Channel: domain.ChannelSMS,
		From: "+15551230002", Body: "pong", ReceivedAt: base,
	}))

	require.NoError(t, s.TrimOldest("agent-1", 2))

	msgs, err := s.List("agent-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-4", msgs[0].ID)
	assert.Equal(t, "msg-5", msgs[1].ID)

	// Other agents keep their queues.
	count, err := s.Count("agent-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMailboxStore_EmptyList(t *testing.T) {
	s := NewSQLiteMailboxStore(testDB(t))

	msgs, err := s.List("agent-1")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}
