// Package ledger is the usage and billing ledger: an append-only stream
// of cost-stamped action records, with period reports reduced over the
// stream at query time. Nothing keeps running counters, so a late tier
// change or a clock-boundary query can never corrupt history.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/logging"
)

// Period selects the reporting window.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates the period vocabulary. Empty means today.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodToday, nil
	case PeriodToday, PeriodWeek, PeriodMonth:
		return Period(s), nil
	}
	return "", domain.Validationf("unknown period: %q", s).
		WithDetail("recognized periods: today, week, month")
}

// periodStart returns the inclusive lower bound of the period on the
// gateway clock: midnight today, Monday of the current week, or the
// first of the current month.
func periodStart(p Period, now time.Time) time.Time {
	y, m, d := now.Date()
	switch p {
	case PeriodWeek:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		return time.Date(y, m, d-daysSinceMonday, 0, 0, 0, 0, now.Location())
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	}
}

// UsageReport aggregates admitted actions for one agent and period.
type UsageReport struct {
	AgentID      string                 `json:"agentId"`
	Period       Period                 `json:"period"`
	TotalActions int                    `json:"totalActions"`
	Successful   int                    `json:"successful"`
	Failed       int                    `json:"failed"`
	ByChannel    map[domain.Channel]int `json:"byChannel"`
	Since        time.Time              `json:"since"`
}

// BillingReport aggregates stamped costs for one agent and period. Tier
// is the agent's current tier; the costs themselves were stamped at
// dispatch time and are not recomputed here.
type BillingReport struct {
	AgentID     string                             `json:"agentId"`
	Period      Period                             `json:"period"`
	Tier        domain.Tier                        `json:"tier"`
	TotalCost   decimal.Decimal                    `json:"totalCost"`
	Currency    string                             `json:"currency"`
	ByChannel   map[domain.Channel]decimal.Decimal `json:"byChannel"`
	ActionCount int                                `json:"actionCount"`
	Since       time.Time                          `json:"since"`
}

// Service stamps and appends action records and reduces them into
// usage and billing reports.
type Service struct {
	store Store
	log   *logging.Logger
	now   func() time.Time
}

func New(store Store, log *logging.Logger) *Service {
	return &Service{
		store: store,
		log:   log.Sub("ledger"),
		now:   time.Now,
	}
}

// Record fills in the record's identity, timestamp and cost, then
// appends it. Cost comes from the agent's current tier rate card;
// failed attempts are recorded at zero cost.
func (s *Service) Record(agent *domain.Agent, rec domain.ActionRecord) (*domain.ActionRecord, error) {
	rec.ID = uuid.New().String()
	rec.AgentID = agent.ID
	rec.CreatedAt = s.now().UTC()
	if rec.Success {
		rec.Cost = Rate(agent.Tier, rec.Channel)
	} else {
		rec.Cost = decimal.Zero
	}

	if err := s.store.Append(&rec); err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("agent", agent.ID).
		Str("action", string(rec.Action)).
		Str("channel", string(rec.Channel)).
		Bool("success", rec.Success).
		Str("cost", rec.Cost.String()).
		Msg("action recorded")
	return &rec, nil
}

// Usage reduces the agent's records for the period into counts.
func (s *Service) Usage(agentID string, period Period) (*UsageReport, error) {
	since := periodStart(period, s.now())
	recs, err := s.store.ListSince(agentID, since)
	if err != nil {
		return nil, err
	}

	report := &UsageReport{
		AgentID:   agentID,
		Period:    period,
		ByChannel: make(map[domain.Channel]int),
		Since:     since,
	}
	for _, rec := range recs {
		report.TotalActions++
		if rec.Success {
			report.Successful++
		} else {
			report.Failed++
		}
		report.ByChannel[rec.Channel]++
	}
	return report, nil
}

// Billing reduces the agent's records for the period into stamped-cost
// sums.
func (s *Service) Billing(agent *domain.Agent, period Period) (*BillingReport, error) {
	since := periodStart(period, s.now())
	recs, err := s.store.ListSince(agent.ID, since)
	if err != nil {
		return nil, err
	}

	report := &BillingReport{
		AgentID:   agent.ID,
		Period:    period,
		Tier:      agent.Tier,
		TotalCost: decimal.Zero,
		Currency:  "USD",
		ByChannel: make(map[domain.Channel]decimal.Decimal),
		Since:     since,
	}
	for _, rec := range recs {
		report.ActionCount++
		report.TotalCost = report.TotalCost.Add(rec.Cost)
		report.ByChannel[rec.Channel] = report.ByChannel[rec.Channel].Add(rec.Cost)
	}
	return report, nil
}
