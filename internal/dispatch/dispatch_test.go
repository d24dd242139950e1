package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/hooks"
	"github.com/voxhollow/switchboard/internal/ledger"
	"github.com/voxhollow/switchboard/internal/logging"
	"github.com/voxhollow/switchboard/internal/provider"
	"github.com/voxhollow/switchboard/internal/ratelimit"
)

type testEnv struct {
	dispatcher *Dispatcher
	ledger     *ledger.Service
	hooks      *hooks.Manager
	mock       *provider.Mock
	agent      *domain.Agent
}

func newTestEnv() *testEnv {
	log := logging.New(nil, "silent")

	mock := &provider.Mock{}
	reg := provider.NewRegistry(log)
	reg.Register(mock)
	reg.BindAll(mock)

	led := ledger.New(ledger.NewMemoryStore(), log)
	hk := hooks.NewManager(log)

	return &testEnv{
		dispatcher: New(ratelimit.New(log), led, reg, hk, time.Second, log),
		ledger:     led,
		hooks:      hk,
		mock:       mock,
		agent: &domain.Agent{
			ID:          "agent-1",
			DisplayName: "Tester",
			Status:      domain.StatusActive,
			Tier:        domain.TierStarter,
			Limits:      domain.RateLimits{MaxActionsPerMinute: 100, MaxActionsPerHour: 1000},
		},
	}
}

func firstLine(err error) string {
	return strings.SplitN(err.Error(), "\n", 2)[0]
}

func (e *testEnv) totalActions(t *testing.T) int {
	t.Helper()
	report, err := e.ledger.Usage(e.agent.ID, ledger.PeriodToday)
	require.NoError(t, err)
	return report.TotalActions
}

func TestDispatchUnknownAction(t *testing.T) {
	e := newTestEnv()

	_, err := e.dispatcher.Dispatch(context.Background(), e.agent, "poke", Payload{})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "recognized actions: send-message")
	assert.Equal(t, 0, e.totalActions(t))
}

func TestDispatchMissingFieldFailsFast(t *testing.T) {
	cases := []struct {
		action       domain.Action
		payload      Payload
		firstMissing string
	}{
		{domain.ActionSendMessage, Payload{}, "to"},
		{domain.ActionSendMessage, Payload{"to": "+15551234567"}, "body"},
		{domain.ActionMakeCall, Payload{}, "to"},
		{domain.ActionCallOnBehalf, Payload{"requesterPhone": "+15559876543"}, "target"},
		{domain.ActionCallOnBehalf, Payload{"target": "+15551234567"}, "requesterPhone"},
		{domain.ActionSendVoiceMessage, Payload{"text": "hi"}, "to"},
		{domain.ActionSendVoiceMessage, Payload{"to": "+15551234567"}, "text"},
		{domain.ActionTransferCall, Payload{"to": "+15551234567"}, "callSid"},
		{domain.ActionTransferCall, Payload{"callSid": "CAfake"}, "to"},
	}

	for _, tc := range cases {
		e := newTestEnv()

		_, err := e.dispatcher.Dispatch(context.Background(), e.agent, tc.action, tc.payload)
		require.Error(t, err, "%s %v", tc.action, tc.payload)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Equal(t, "missing required field: "+tc.firstMissing, firstLine(err))
		assert.Contains(t, err.Error(), string(tc.action)+" requires:")

		// Nothing rejected at validation reaches the ledger.
		assert.Equal(t, 0, e.totalActions(t))
	}
}

func TestDispatchEmptyAndNonStringFieldsCountAsMissing(t *testing.T) {
	e := newTestEnv()

	_, err := e.dispatcher.Dispatch(context.Background(), e.agent, domain.ActionMakeCall, Payload{"to": ""})
	require.Error(t, err)
	assert.Equal(t, "missing required field: to", firstLine(err))

	_, err = e.dispatcher.Dispatch(context.Background(), e.agent, domain.ActionMakeCall, Payload{"to": 42})
	require.Error(t, err)
	assert.Equal(t, "missing required field: to", firstLine(err))
}

func TestDispatchChannelInference(t *testing.T) {
	cases := []struct {
		name    string
		payload Payload
		want    domain.Channel
	}{
		{"phone defaults to sms", Payload{"to": "+15551234567", "body": "hi"}, domain.ChannelSMS},
		{"email address infers email", Payload{"to": "test@example.com", "body": "hi"}, domain.ChannelEmail},
		{"explicit email", Payload{"to": "test@example.com", "body": "hi", "channel": "email", "subject": "Test"}, domain.ChannelEmail},
		{"explicit sms wins over email-shaped to", Payload{"to": "test@example.com", "body": "hi", "channel": "sms"}, domain.ChannelSMS},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv()

			var got provider.Request
			e.mock.SendFunc = func(_ context.Context, req provider.Request) (*provider.Receipt, error) {
				got = req
				return &provider.Receipt{Provider: "mock", Ref: "SMx"}, nil
			}

			outcome, err := e.dispatcher.Dispatch(context.Background(), e.agent, domain.ActionSendMessage, tc.payload)
			require.NoError(t, err)
			assert.Equal(t, tc.want, outcome.Channel)
			assert.Equal(t, tc.want, got.Channel)
		})
	}
}

func TestDispatchUnknownChannelRejected(t *testing.T) {
	e := newTestEnv()

	_, err := e.dispatcher.Dispatch(context.Background(), e.agent, domain.ActionSendMessage,
		Payload{"to": "+15551234567", "body": "hi", "channel": "fax"})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, `unknown channel: "fax"`, firstLine(err))
	assert.Equal(t, 0, e.totalActions(t))
}

func TestDispatchBuildsProviderRequests(t *testing.T) {
	cases := []struct {
		action  domain.Action
		payload Payload
		want    provider.Request
	}{
		{
			domain.ActionMakeCall,
			Payload{"to": "+15551234567"},
			provider.Request{Channel: domain.ChannelVoiceCall, To: "+15551234567"},
		},
		{
			domain.ActionCallOnBehalf,
			Payload{"target": "+15551234567", "requesterPhone": "+15559876543", "requesterName": "John"},
			provider.Request{Channel: domain.ChannelCallOnBehalf, To: "+15551234567", From: "+15559876543"},
		},
		{
			domain.ActionSendVoiceMessage,
			Payload{"to": "+15551234567", "text": "Test voice message"},
			provider.Request{Channel: domain.ChannelVoiceMessage, To: "+15551234567", Body: "Test voice message"},
		},
		{
			domain.ActionTransferCall,
			Payload{"callSid": "CAfake", "to": "+15551234567"},
			provider.Request{Channel: domain.ChannelCallTransfer, To: "+15551234567", CallSid: "CAfake"},
		},
	}

	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			e := newTestEnv()

			var got provider.Request
			e.mock.SendFunc = func(_ context.Context, req provider.Request) (*provider.Receipt, error) {
				got = req
				return &provider.Receipt{Provider: "mock", Ref: "CAx"}, nil
			}

			_, err := e.dispatcher.Dispatch(context.Background(), e.agent, tc.action, tc.payload)
			require.NoError(t, err)

			tc.want.AgentID = e.agent.ID
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDispatchDenialIsNotLedgered(t *testing.T) {
	e := newTestEnv()
	e.agent.Limits = domain.RateLimits{MaxActionsPerMinute: 1, MaxActionsPerHour: 100}

	_, err := e.dispatcher.Dispatch(context.Background(), e.agent, domain.ActionMakeCall, Payload{"to": "+15551234567"})
	require.NoError(t, err)

	_, err = e.dispatcher.Dispatch(context.Background(), e.agent, domain.ActionMakeCall, Payload{"to": "+15551234567"})
	require.Error(t, err)
	assert.Equal(t, domain.KindRateLimit, domain.KindOf(err))

	assert.Equal(t, 1, e.totalActions(t))
}

func TestDispatchProviderFailureIsLedgered(t *testing.T) {
	e := newTestEnv()
	e.mock.SendFunc = func(context.Context, provider.Request) (*provider.Receipt, error) {
		return nil, domain.Providerf("twilio: API error (503)")
	}

	_, err := e.dispatcher.Dispatch(context.Background(), e.agent, domain.ActionMakeCall, Payload{"to": "+15551234567"})
	require.Error(t, err)
	assert.Equal(t, domain.KindProvider, domain.KindOf(err))

	report, err := e.ledger.Usage(e.agent.ID, ledger.PeriodToday)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalActions)
	assert.Equal(t, 1, report.Failed)

	// Failed attempts never bill.
	billing, err := e.ledger.Billing(e.agent, ledger.PeriodToday)
	require.NoError(t, err)
	assert.True(t, billing.TotalCost.IsZero())
}

func TestDispatchUnservedChannelIsLedgered(t *testing.T) {
	log := logging.New(nil, "silent")
	led := ledger.New(ledger.NewMemoryStore(), log)
	e := &testEnv{
		dispatcher: New(ratelimit.New(log), led, provider.NewRegistry(log), hooks.NewManager(log), time.Second, log),
		ledger:     led,
		agent: &domain.Agent{
			ID:     "agent-1",
			Status: domain.StatusActive,
			Tier:   domain.TierFree,
			Limits: domain.RateLimits{MaxActionsPerMinute: 100, MaxActionsPerHour: 1000},
		},
	}

	_, err := e.dispatcher.Dispatch(context.Background(), e.agent, domain.ActionMakeCall, Payload{"to": "+15551234567"})
	require.Error(t, err)
	assert.Equal(t, domain.KindProvider, domain.KindOf(err))
	assert.Contains(t, err.Error(), "no provider is configured")
	assert.Equal(t, 1, e.totalActions(t))
}

func TestDispatchSuccessLedgersAndEmitsEvent(t *testing.T) {
	e := newTestEnv()

	var got hooks.Payload
	e.hooks.On(hooks.EventActionDispatched, "capture", func(_ context.Context, p hooks.Payload) error {
		got = p
		return nil
	})

	outcome, err := e.dispatcher.Dispatch(context.Background(), e.agent, domain.ActionSendMessage,
		Payload{"to": "+15551234567", "body": "Hello API"})
	require.NoError(t, err)

	assert.Equal(t, domain.ChannelSMS, outcome.Channel)
	assert.Equal(t, "mock-ref", outcome.Ref)

	report, err := e.ledger.Usage(e.agent.ID, ledger.PeriodToday)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalActions)
	assert.Equal(t, 1, report.Successful)

	assert.Equal(t, hooks.EventActionDispatched, got.Event)
	assert.Equal(t, "agent-1", got.Data["agentId"])
	assert.Equal(t, "send-message", got.Data["action"])
	assert.Equal(t, "sms", got.Data["channel"])
	assert.Equal(t, true, got.Data["success"])
	assert.Equal(t, "mock-ref", got.Data["ref"])
}

func TestDispatchProviderTimeout(t *testing.T) {
	log := logging.New(nil, "silent")

	mock := &provider.Mock{}
	mock.SendFunc = func(ctx context.Context, _ provider.Request) (*provider.Receipt, error) {
		<-ctx.Done()
		return nil, domain.Providerf("twilio: request timed out")
	}
	reg := provider.NewRegistry(log)
	reg.Register(mock)
	reg.BindAll(mock)

	led := ledger.New(ledger.NewMemoryStore(), log)
	d := New(ratelimit.New(log), led, reg, hooks.NewManager(log), 20*time.Millisecond, log)

	agent := &domain.Agent{
		ID:     "agent-1",
		Status: domain.StatusActive,
		Tier:   domain.TierFree,
		Limits: domain.RateLimits{MaxActionsPerMinute: 100, MaxActionsPerHour: 1000},
	}

	start := time.Now()
	_, err := d.Dispatch(context.Background(), agent, domain.ActionMakeCall, Payload{"to": "+15551234567"})
	require.Error(t, err)
	assert.Equal(t, domain.KindProvider, domain.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}
