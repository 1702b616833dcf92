// Package domain contains the core data models shared across modules.
// The domain layer is pure: no database or HTTP dependencies.
package domain

import (
	"fmt"
	"time"
)

// Direction is the side of a position
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Valid reports whether the direction is one of the two known sides
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Session is a named time-of-day trading window
type Session string

const (
	SessionTokyo     Session = "tokyo"
	SessionLondon    Session = "london"
	SessionNewYorkAM Session = "new_york_am"
	SessionNewYorkPM Session = "new_york_pm"
	SessionOffHours  Session = "off_hours"
)

// Event is one raw broker execution event from the append-only log.
// Events are immutable once written; Processed is the only field
// downstream consumers ever flip.
type Event struct {
	ID             int64
	AccountID      int64
	TerminalID     string
	Ticket         string
	EventType      string // "open", "close", ...
	Symbol         string
	Direction      Direction
	LotSize        float64
	Price          float64
	SL             *float64
	TP             *float64
	Profit         float64
	Commission     float64
	Swap           float64
	EventTimestamp time.Time // UTC
	RawPayload     string    // opaque JSON from the broker bridge
	Processed      bool
}

// EventPayload holds the optional fields the broker bridge records inside
// an event's raw payload. Any of them may be absent.
type EventPayload struct {
	EntryPrice    *float64 `json:"entry_price,omitempty"`
	EntryTime     *int64   `json:"entry_time,omitempty"` // Unix seconds
	EquityAtEntry *float64 `json:"equity_at_entry,omitempty"`
}

// Trade is the derived aggregate: one row per closed or open position.
// (user_id, ticket) is unique. A closed trade (IsOpen=false) carries
// exit price/time and net PnL or the row is considered malformed.
type Trade struct {
	ID              int64
	UserID          string
	AccountID       int64
	TerminalID      string
	Ticket          string
	Symbol          string
	Direction       Direction
	TotalLots       float64
	OriginalLots    float64
	EntryPrice      float64
	EntryTime       time.Time // UTC
	ExitPrice       *float64
	ExitTime        *time.Time
	SLInitial       *float64
	TPInitial       *float64
	SLFinal         *float64
	TPFinal         *float64
	GrossPnl        *float64
	Commission      float64
	Swap            float64
	NetPnl          *float64
	RMultipleActual *float64
	DurationSeconds *int64
	Session         Session
	IsOpen          bool
	TradeGroupID    *string
	PlaybookID      *string
	BalanceAtEntry  *float64
	EquityAtEntry   *float64
	IsArchived      bool
	CreatedAt       *time.Time
}

// Validate checks trade consistency before database insertion
func (t *Trade) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if t.Ticket == "" {
		return fmt.Errorf("ticket is required")
	}
	if !t.Direction.Valid() {
		return fmt.Errorf("invalid direction: %s", t.Direction)
	}
	if t.EntryPrice <= 0 {
		return fmt.Errorf("entry price must be positive")
	}
	if t.EntryTime.IsZero() {
		return fmt.Errorf("entry time is required")
	}
	if !t.IsOpen {
		if t.ExitPrice == nil || t.ExitTime == nil || t.NetPnl == nil {
			return fmt.Errorf("closed trade %s is missing exit price, exit time or net pnl", t.Ticket)
		}
	}
	return nil
}

// TradeGroup is a cluster of Trade rows believed to be fills of one
// logical position. FirstEntryTime is fixed at creation and is not
// retroactively updated when later members with earlier times join.
type TradeGroup struct {
	ID             string // uuid
	UserID         string
	Symbol         string // normalized
	Direction      Direction
	FirstEntryTime time.Time
	PlaybookID     *string
	CreatedAt      time.Time
}

// TradeFeatures is the derived per-trade feature row, one-to-one with a
// Trade. Safe to recompute and overwrite at any time (upsert on TradeID).
type TradeFeatures struct {
	TradeID                  int64     `json:"trade_id"`
	DayOfWeek                int       `json:"day_of_week"` // UTC weekday, 0=Sunday
	TimeSinceSessionOpenMins *float64  `json:"time_since_session_open_mins"`
	RangeSizePips            *float64  `json:"range_size_pips"`
	EntryPercentile          *float64  `json:"entry_percentile"`
	EntryEfficiency          *float64  `json:"entry_efficiency"`
	ExitEfficiency           *float64  `json:"exit_efficiency"`
	StopLocationQuality      *float64  `json:"stop_location_quality"`
	ComputedAt               time.Time `json:"computed_at"`
}

// Severity classifies how a pattern's average R reads
type Severity string

const (
	SeverityPositive Severity = "positive"
	SeverityNegative Severity = "negative"
	SeverityNeutral  Severity = "neutral"
)

// PatternStats holds the aggregate statistics of one pattern bucket
type PatternStats struct {
	Trades   int     `json:"trades"`
	WinRate  float64 `json:"winRate"`
	AvgR     float64 `json:"avgR"`
	TotalPnl float64 `json:"totalPnl"`
}

// Pattern is one statistically notable condition mined from closed
// trades. Patterns are ephemeral: produced fresh on every invocation,
// never persisted.
type Pattern struct {
	Type           string       `json:"type"`
	Category       string       `json:"category"`
	Insight        string       `json:"insight"`
	Severity       Severity     `json:"severity"`
	Recommendation string       `json:"recommendation"`
	Stats          PatternStats `json:"stats"`
}

// Account scopes events and trades to an owning user and carries the
// current equity used as the fallback for equity_at_entry.
type Account struct {
	ID            int64
	UserID        string
	TerminalID    string
	Currency      string
	CurrentEquity float64
	CreatedAt     time.Time
}
