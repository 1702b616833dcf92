// Package trades owns persistence and read access for trade rows in
// journal.db. Other modules (grouping, recovery, features, patterns)
// go through this repository instead of querying trades directly.
package trades

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
)

// TradeRepository handles trade database operations
type TradeRepository struct {
	journalDB *sql.DB // journal.db - trades table
	log       zerolog.Logger
}

// tradesColumns is the list of columns for the trades table
// Used to avoid SELECT * which can break when schema changes
// Column order must match scanTrade() expectations
const tradesColumns = `id, user_id, account_id, terminal_id, ticket, symbol, direction,
	total_lots, original_lots, entry_price, entry_time, exit_price, exit_time,
	sl_initial, tp_initial, sl_final, tp_final, gross_pnl, commission, swap,
	net_pnl, r_multiple_actual, duration_seconds, session, is_open,
	trade_group_id, playbook_id, balance_at_entry, equity_at_entry, is_archived, created_at`

// NewTradeRepository creates a new trade repository
func NewTradeRepository(journalDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "trade").Logger(),
	}
}

// Insert inserts a new trade record and returns its row ID.
// The UNIQUE(user_id, ticket) constraint is the last line of defense
// against duplicates; callers that want skip-on-duplicate semantics
// should check ExistsTicket first.
func (r *TradeRepository) Insert(trade *domain.Trade) (int64, error) {
	if err := trade.Validate(); err != nil {
		return 0, fmt.Errorf("failed to insert trade: %w", err)
	}

	query := `
		INSERT INTO trades
		(user_id, account_id, terminal_id, ticket, symbol, direction,
		 total_lots, original_lots, entry_price, entry_time, exit_price, exit_time,
		 sl_initial, tp_initial, sl_final, tp_final, gross_pnl, commission, swap,
		 net_pnl, r_multiple_actual, duration_seconds, session, is_open,
		 trade_group_id, playbook_id, balance_at_entry, equity_at_entry, is_archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.journalDB.Exec(query,
		trade.UserID,
		trade.AccountID,
		nullString(trade.TerminalID),
		trade.Ticket,
		trade.Symbol,
		string(trade.Direction),
		trade.TotalLots,
		trade.OriginalLots,
		trade.EntryPrice,
		trade.EntryTime.Unix(),
		nullFloat64Ptr(trade.ExitPrice),
		nullTimePtr(trade.ExitTime),
		nullFloat64Ptr(trade.SLInitial),
		nullFloat64Ptr(trade.TPInitial),
		nullFloat64Ptr(trade.SLFinal),
		nullFloat64Ptr(trade.TPFinal),
		nullFloat64Ptr(trade.GrossPnl),
		trade.Commission,
		trade.Swap,
		nullFloat64Ptr(trade.NetPnl),
		nullFloat64Ptr(trade.RMultipleActual),
		nullInt64Ptr(trade.DurationSeconds),
		nullString(string(trade.Session)),
		boolToInt(trade.IsOpen),
		nullStringPtr(trade.TradeGroupID),
		nullStringPtr(trade.PlaybookID),
		nullFloat64Ptr(trade.BalanceAtEntry),
		nullFloat64Ptr(trade.EquityAtEntry),
		boolToInt(trade.IsArchived),
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted trade id: %w", err)
	}

	r.log.Info().
		Str("user_id", trade.UserID).
		Str("ticket", trade.Ticket).
		Str("symbol", trade.Symbol).
		Msg("Trade inserted")

	return id, nil
}

// ExistsTicket checks if a trade with the given (user_id, ticket) already exists
func (r *TradeRepository) ExistsTicket(userID, ticket string) (bool, error) {
	query := "SELECT 1 FROM trades WHERE user_id = ? AND ticket = ? LIMIT 1"

	var exists int
	err := r.journalDB.QueryRow(query, userID, ticket).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check trade existence: %w", err)
	}

	return true, nil
}

// GetByID retrieves a trade by row ID. Returns (nil, nil) when not found.
func (r *TradeRepository) GetByID(id int64) (*domain.Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades WHERE id = ?"

	row := r.journalDB.QueryRow(query, id)
	trade, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade by id: %w", err)
	}

	return &trade, nil
}

// GetUngrouped retrieves the user's ungrouped, non-archived trades,
// oldest entry first. These are the anchors for a grouping run.
func (r *TradeRepository) GetUngrouped(userID string) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradesColumns + ` FROM trades
		WHERE user_id = ? AND trade_group_id IS NULL AND is_archived = 0
		ORDER BY entry_time ASC
	`

	rows, err := r.journalDB.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ungrouped trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// GetCandidatesInWindow retrieves the user's non-archived trades of the
// given direction whose entry time falls within +/-window of center,
// excluding the anchor row itself. Symbol matching is left to the
// caller, which compares normalized forms.
func (r *TradeRepository) GetCandidatesInWindow(userID string, direction domain.Direction, center time.Time, window time.Duration, excludeID int64) ([]domain.Trade, error) {
	from := center.Add(-window).Unix()
	to := center.Add(window).Unix()

	query := `
		SELECT ` + tradesColumns + ` FROM trades
		WHERE user_id = ? AND direction = ? AND is_archived = 0
		  AND entry_time >= ? AND entry_time <= ?
		  AND id != ?
		ORDER BY entry_time ASC
	`

	rows, err := r.journalDB.Query(query, userID, string(direction), from, to, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// AssignGroup sets the trade_group_id on every trade in the cluster
// with a single UPDATE, so a cluster is assigned atomically.
func (r *TradeRepository) AssignGroup(groupID string, tradeIDs []int64) error {
	if len(tradeIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(tradeIDs))
	placeholders = placeholders[:len(placeholders)-1]

	query := "UPDATE trades SET trade_group_id = ? WHERE id IN (" + placeholders + ")"

	args := make([]interface{}, 0, len(tradeIDs)+1)
	args = append(args, groupID)
	for _, id := range tradeIDs {
		args = append(args, id)
	}

	if _, err := r.journalDB.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to assign trade group: %w", err)
	}

	return nil
}

// GetClosed retrieves the user's closed, non-archived trades, oldest
// entry first. An account ID narrows the set when provided.
func (r *TradeRepository) GetClosed(userID string, accountID *int64) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradesColumns + ` FROM trades
		WHERE user_id = ? AND is_open = 0 AND is_archived = 0
	`
	args := []interface{}{userID}

	if accountID != nil {
		query += " AND account_id = ?"
		args = append(args, *accountID)
	}
	query += " ORDER BY entry_time ASC"

	rows, err := r.journalDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get closed trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// List retrieves the user's trades, most recent entry first. An
// account ID narrows the set when provided.
func (r *TradeRepository) List(userID string, accountID *int64, limit int) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradesColumns + ` FROM trades
		WHERE user_id = ?
	`
	args := []interface{}{userID}

	if accountID != nil {
		query += " AND account_id = ?"
		args = append(args, *accountID)
	}
	query += " ORDER BY entry_time DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.journalDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

func collectTrades(rows *sql.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (domain.Trade, error) {
	var trade domain.Trade
	var entryTime, createdAt sql.NullInt64
	var exitTime, durationSeconds sql.NullInt64
	var terminalID, session, tradeGroupID, playbookID sql.NullString
	var exitPrice, slInitial, tpInitial, slFinal, tpFinal sql.NullFloat64
	var grossPnl, netPnl, rMultiple, balanceAtEntry, equityAtEntry sql.NullFloat64
	var isOpen, isArchived int

	err := row.Scan(
		&trade.ID,
		&trade.UserID,
		&trade.AccountID,
		&terminalID,
		&trade.Ticket,
		&trade.Symbol,
		&trade.Direction,
		&trade.TotalLots,
		&trade.OriginalLots,
		&trade.EntryPrice,
		&entryTime,
		&exitPrice,
		&exitTime,
		&slInitial,
		&tpInitial,
		&slFinal,
		&tpFinal,
		&grossPnl,
		&trade.Commission,
		&trade.Swap,
		&netPnl,
		&rMultiple,
		&durationSeconds,
		&session,
		&isOpen,
		&tradeGroupID,
		&playbookID,
		&balanceAtEntry,
		&equityAtEntry,
		&isArchived,
		&createdAt,
	)
	if err != nil {
		return trade, err
	}

	// Convert Unix timestamps to time.Time
	if entryTime.Valid {
		trade.EntryTime = time.Unix(entryTime.Int64, 0).UTC()
	}
	if exitTime.Valid {
		t := time.Unix(exitTime.Int64, 0).UTC()
		trade.ExitTime = &t
	}
	if createdAt.Valid {
		t := time.Unix(createdAt.Int64, 0).UTC()
		trade.CreatedAt = &t
	}

	// Handle optional fields
	if terminalID.Valid {
		trade.TerminalID = terminalID.String
	}
	if session.Valid {
		trade.Session = domain.Session(session.String)
	}
	if tradeGroupID.Valid {
		trade.TradeGroupID = &tradeGroupID.String
	}
	if playbookID.Valid {
		trade.PlaybookID = &playbookID.String
	}
	if exitPrice.Valid {
		trade.ExitPrice = &exitPrice.Float64
	}
	if slInitial.Valid {
		trade.SLInitial = &slInitial.Float64
	}
	if tpInitial.Valid {
		trade.TPInitial = &tpInitial.Float64
	}
	if slFinal.Valid {
		trade.SLFinal = &slFinal.Float64
	}
	if tpFinal.Valid {
		trade.TPFinal = &tpFinal.Float64
	}
	if grossPnl.Valid {
		trade.GrossPnl = &grossPnl.Float64
	}
	if netPnl.Valid {
		trade.NetPnl = &netPnl.Float64
	}
	if rMultiple.Valid {
		trade.RMultipleActual = &rMultiple.Float64
	}
	if durationSeconds.Valid {
		trade.DurationSeconds = &durationSeconds.Int64
	}
	if balanceAtEntry.Valid {
		trade.BalanceAtEntry = &balanceAtEntry.Float64
	}
	if equityAtEntry.Valid {
		trade.EquityAtEntry = &equityAtEntry.Float64
	}

	trade.IsOpen = isOpen != 0
	trade.IsArchived = isArchived != 0

	return trade, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt64Ptr(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
