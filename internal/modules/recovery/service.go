package recovery

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/trades"
	"github.com/aristath/journal/internal/risk"
	"github.com/aristath/journal/internal/sessions"
	"github.com/aristath/journal/internal/symbols"
)

// Result summarizes one orphan recovery run
type Result struct {
	Recovered int      `json:"recovered"`
	Skipped   int      `json:"skipped"`
	Tickets   []string `json:"tickets"`
}

// Service reconstructs closed trades from processed close events that
// never produced a trade row. The existence check before each insert is
// check-then-act; the UNIQUE(user_id, ticket) constraint in journal.db
// is what actually guarantees no duplicates under concurrent runs, and
// a constraint violation here is counted as a skip, not a failure.
type Service struct {
	eventRepo   *EventRepository
	accountRepo *AccountRepository
	tradeRepo   *trades.TradeRepository
	calc        *risk.Calculator
	log         zerolog.Logger
}

// NewService creates an orphan recovery service
func NewService(eventRepo *EventRepository, accountRepo *AccountRepository, tradeRepo *trades.TradeRepository, calc *risk.Calculator, log zerolog.Logger) *Service {
	if calc == nil {
		calc = risk.NewCalculator(nil)
	}
	return &Service{
		eventRepo:   eventRepo,
		accountRepo: accountRepo,
		tradeRepo:   tradeRepo,
		calc:        calc,
		log:         log.With().Str("service", "recovery").Logger(),
	}
}

// Recover scans the user's processed close events and inserts a closed
// trade for every ticket that has none. Idempotent: a second run over
// the same log recovers nothing. Per-event failures are logged and
// skipped.
func (s *Service) Recover(userID string) (*Result, error) {
	accounts, err := s.accountRepo.GetByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	result := &Result{Tickets: []string{}}
	if len(accounts) == 0 {
		return result, nil
	}

	accountIDs := make([]int64, len(accounts))
	accountsByID := make(map[int64]*domain.Account, len(accounts))
	for i := range accounts {
		accountIDs[i] = accounts[i].ID
		accountsByID[accounts[i].ID] = &accounts[i]
	}

	events, err := s.eventRepo.GetProcessedCloseEvents(accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load close events: %w", err)
	}

	for i := range events {
		event := &events[i]

		exists, err := s.tradeRepo.ExistsTicket(userID, event.Ticket)
		if err != nil {
			s.log.Error().Err(err).Str("ticket", event.Ticket).Msg("Existence check failed, skipping event")
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		trade := s.buildTrade(userID, event, accountsByID[event.AccountID])

		if _, err := s.tradeRepo.Insert(trade); err != nil {
			// A concurrent run may have inserted the same ticket between
			// the existence check and this insert; the unique constraint
			// turns that race into a skip.
			if isUniqueViolation(err) {
				result.Skipped++
				continue
			}
			s.log.Error().Err(err).Str("ticket", event.Ticket).Msg("Failed to insert recovered trade")
			continue
		}

		result.Recovered++
		result.Tickets = append(result.Tickets, event.Ticket)
	}

	s.log.Info().
		Str("user_id", userID).
		Int("recovered", result.Recovered).
		Int("skipped", result.Skipped).
		Msg("Orphan recovery complete")

	return result, nil
}

// buildTrade reconstructs a closed trade from one close event. The raw
// payload may carry entry-side fields the close event itself lacks;
// every payload field has a fallback: entry price falls back to the
// close price, entry time to the event timestamp, equity at entry to
// the account's current equity.
func (s *Service) buildTrade(userID string, event *domain.Event, account *domain.Account) *domain.Trade {
	var payload domain.EventPayload
	if event.RawPayload != "" {
		// Malformed payloads degrade to the fallbacks, never abort
		_ = json.Unmarshal([]byte(event.RawPayload), &payload)
	}

	entryPrice := event.Price
	if payload.EntryPrice != nil {
		entryPrice = *payload.EntryPrice
	}

	entryTime := event.EventTimestamp
	if payload.EntryTime != nil {
		entryTime = time.Unix(*payload.EntryTime, 0).UTC()
	}

	var equityAtEntry *float64
	if payload.EquityAtEntry != nil {
		equityAtEntry = payload.EquityAtEntry
	} else if account != nil && account.CurrentEquity > 0 {
		equity := account.CurrentEquity
		equityAtEntry = &equity
	}

	exitPrice := event.Price
	exitTime := event.EventTimestamp

	var durationSeconds *int64
	if d := int64(exitTime.Sub(entryTime).Seconds()); d >= 0 {
		durationSeconds = &d
	}

	grossPnl := event.Profit
	netPnl := event.Profit - event.Commission - math.Abs(event.Swap)

	rMultiple, rSource := s.calc.RMultiple(event.Symbol, entryPrice, event.SL, event.LotSize, netPnl, equityAtEntry)
	if rSource == risk.RSourceEquity {
		// An equity-percentage stand-in, not a true risk multiple; it
		// still lands in r_multiple_actual for compatibility.
		s.log.Debug().
			Str("ticket", event.Ticket).
			Msg("R-multiple derived from equity fallback")
	}

	return &domain.Trade{
		UserID:          userID,
		AccountID:       event.AccountID,
		TerminalID:      event.TerminalID,
		Ticket:          event.Ticket,
		Symbol:          symbols.Normalize(event.Symbol),
		Direction:       event.Direction,
		TotalLots:       0,
		OriginalLots:    event.LotSize,
		EntryPrice:      entryPrice,
		EntryTime:       entryTime,
		ExitPrice:       &exitPrice,
		ExitTime:        &exitTime,
		SLInitial:       event.SL,
		TPInitial:       event.TP,
		SLFinal:         event.SL,
		TPFinal:         event.TP,
		GrossPnl:        &grossPnl,
		Commission:      event.Commission,
		Swap:            event.Swap,
		NetPnl:          &netPnl,
		RMultipleActual: rMultiple,
		DurationSeconds: durationSeconds,
		Session:         sessions.Classify(entryTime),
		IsOpen:          false,
		EquityAtEntry:   equityAtEntry,
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
