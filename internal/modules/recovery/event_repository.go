// Package recovery rebuilds closed trades that the live ingestion path
// missed, from the append-only execution event log.
package recovery

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
)

// EventRepository reads execution events from events.db. The event log
// is append-only; this repository never writes to it.
type EventRepository struct {
	eventsDB *sql.DB // events.db - events table
	log      zerolog.Logger
}

const eventColumns = `id, account_id, terminal_id, ticket, event_type, symbol, direction,
	lot_size, price, sl, tp, profit, commission, swap, event_timestamp, raw_payload, processed`

// NewEventRepository creates a new event repository
func NewEventRepository(eventsDB *sql.DB, log zerolog.Logger) *EventRepository {
	return &EventRepository{
		eventsDB: eventsDB,
		log:      log.With().Str("repo", "event").Logger(),
	}
}

// GetProcessedCloseEvents retrieves the processed close events for the
// given accounts, oldest first. Processed close events are exactly the
// ones the live path claims to have handled; any without a matching
// trade row is an orphan.
func (r *EventRepository) GetProcessedCloseEvents(accountIDs []int64) ([]domain.Event, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(accountIDs))
	placeholders = placeholders[:len(placeholders)-1]

	query := `
		SELECT ` + eventColumns + ` FROM events
		WHERE event_type = 'close' AND processed = 1
		  AND account_id IN (` + placeholders + `)
		ORDER BY event_timestamp ASC
	`

	args := make([]interface{}, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}

	rows, err := r.eventsDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get processed close events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func scanEvent(rows *sql.Rows) (domain.Event, error) {
	var event domain.Event
	var terminalID, rawPayload sql.NullString
	var sl, tp sql.NullFloat64
	var eventTimestamp int64
	var processed int

	err := rows.Scan(
		&event.ID,
		&event.AccountID,
		&terminalID,
		&event.Ticket,
		&event.EventType,
		&event.Symbol,
		&event.Direction,
		&event.LotSize,
		&event.Price,
		&sl,
		&tp,
		&event.Profit,
		&event.Commission,
		&event.Swap,
		&eventTimestamp,
		&rawPayload,
		&processed,
	)
	if err != nil {
		return event, err
	}

	event.EventTimestamp = time.Unix(eventTimestamp, 0).UTC()
	event.Processed = processed != 0
	if terminalID.Valid {
		event.TerminalID = terminalID.String
	}
	if rawPayload.Valid {
		event.RawPayload = rawPayload.String
	}
	if sl.Valid {
		event.SL = &sl.Float64
	}
	if tp.Valid {
		event.TP = &tp.Float64
	}

	return event, nil
}
