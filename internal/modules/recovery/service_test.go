package recovery

import (
	"bytes"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/trades"
	journaltest "github.com/aristath/journal/internal/testing"
)

type recoveryFixture struct {
	service   *Service
	tradeRepo *trades.TradeRepository
	eventsDB  *sql.DB
	journalDB *sql.DB
}

func newRecoveryFixture(t *testing.T) (*recoveryFixture, func()) {
	t.Helper()

	eventsDB, eventsCleanup := journaltest.NewTestDB(t, "events")
	journalDB, journalCleanup := journaltest.NewTestDB(t, "journal")
	log := zerolog.New(nil).Level(zerolog.Disabled)

	tradeRepo := trades.NewTradeRepository(journalDB.Conn(), log)
	eventRepo := NewEventRepository(eventsDB.Conn(), log)
	accountRepo := NewAccountRepository(journalDB.Conn(), log)
	service := NewService(eventRepo, accountRepo, tradeRepo, nil, log)

	fixture := &recoveryFixture{
		service:   service,
		tradeRepo: tradeRepo,
		eventsDB:  eventsDB.Conn(),
		journalDB: journalDB.Conn(),
	}

	return fixture, func() {
		journalCleanup()
		eventsCleanup()
	}
}

func (f *recoveryFixture) insertAccount(t *testing.T, userID string, equity float64) int64 {
	t.Helper()

	res, err := f.journalDB.Exec(
		"INSERT INTO accounts (user_id, terminal_id, currency, current_equity, created_at) VALUES (?, ?, 'USD', ?, ?)",
		userID, "mt5-1", equity, time.Now().Unix(),
	)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func (f *recoveryFixture) insertCloseEvent(t *testing.T, accountID int64, ticket, symbol string, price, profit, commission, swap float64, ts time.Time, rawPayload string) {
	t.Helper()

	_, err := f.eventsDB.Exec(`
		INSERT INTO events
		(account_id, terminal_id, ticket, event_type, symbol, direction, lot_size,
		 price, profit, commission, swap, event_timestamp, raw_payload, processed, created_at)
		VALUES (?, 'mt5-1', ?, 'close', ?, 'buy', 0.5, ?, ?, ?, ?, ?, ?, 1, ?)`,
		accountID, ticket, symbol, price, profit, commission, swap, ts.Unix(), rawPayload, time.Now().Unix(),
	)
	require.NoError(t, err)
}

func TestRecover_RebuildsClosedTradeFromEvent(t *testing.T) {
	f, cleanup := newRecoveryFixture(t)
	defer cleanup()

	accountID := f.insertAccount(t, "u1", 25000)

	closeTime := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	entryTime := closeTime.Add(-45 * time.Minute)
	payload := `{"entry_price": 1.1000, "entry_time": ` + formatUnix(entryTime) + `, "equity_at_entry": 10000}`

	f.insertCloseEvent(t, accountID, "T1", "EURUSD.a", 1.1042, 50, 5, -3, closeTime, payload)

	result, err := f.service.Recover("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Recovered)
	assert.Equal(t, []string{"T1"}, result.Tickets)
	assert.Equal(t, 0, result.Skipped)

	list, err := f.tradeRepo.List("u1", nil, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	trade := list[0]
	assert.Equal(t, "EURUSD", trade.Symbol)
	assert.Equal(t, "T1", trade.Ticket)
	assert.False(t, trade.IsOpen)
	assert.Equal(t, 0.5, trade.OriginalLots)
	assert.Equal(t, 1.1000, trade.EntryPrice)
	assert.Equal(t, entryTime.Unix(), trade.EntryTime.Unix())
	require.NotNil(t, trade.ExitPrice)
	assert.Equal(t, 1.1042, *trade.ExitPrice)
	require.NotNil(t, trade.NetPnl)
	// 50 profit - 5 commission - |−3| swap
	assert.InDelta(t, 42.0, *trade.NetPnl, 0.001)
	require.NotNil(t, trade.DurationSeconds)
	assert.Equal(t, int64(45*60), *trade.DurationSeconds)
	require.NotNil(t, trade.EquityAtEntry)
	assert.InDelta(t, 10000.0, *trade.EquityAtEntry, 0.001)
	// No stop on the event: R comes from the equity fallback
	require.NotNil(t, trade.RMultipleActual)
	assert.InDelta(t, 0.42, *trade.RMultipleActual, 0.001)
	assert.NotEmpty(t, trade.Session)
}

func TestRecover_PayloadFallbacks(t *testing.T) {
	f, cleanup := newRecoveryFixture(t)
	defer cleanup()

	accountID := f.insertAccount(t, "u1", 25000)

	closeTime := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	f.insertCloseEvent(t, accountID, "T2", "GBPUSD", 1.2650, 10, 0, 0, closeTime, "")

	result, err := f.service.Recover("u1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Recovered)

	list, err := f.tradeRepo.List("u1", nil, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	trade := list[0]
	// Everything falls back to the close event and the account
	assert.Equal(t, 1.2650, trade.EntryPrice)
	assert.Equal(t, closeTime.Unix(), trade.EntryTime.Unix())
	require.NotNil(t, trade.DurationSeconds)
	assert.Equal(t, int64(0), *trade.DurationSeconds)
	require.NotNil(t, trade.EquityAtEntry)
	assert.InDelta(t, 25000.0, *trade.EquityAtEntry, 0.001)
}

func TestRecover_Idempotent(t *testing.T) {
	f, cleanup := newRecoveryFixture(t)
	defer cleanup()

	accountID := f.insertAccount(t, "u1", 25000)
	closeTime := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	f.insertCloseEvent(t, accountID, "T1", "EURUSD", 1.1042, 50, 5, -3, closeTime, "")

	first, err := f.service.Recover("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Recovered)

	second, err := f.service.Recover("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Recovered)
	assert.Equal(t, 1, second.Skipped)

	list, err := f.tradeRepo.List("u1", nil, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecover_SkipsTicketsWithExistingTrade(t *testing.T) {
	f, cleanup := newRecoveryFixture(t)
	defer cleanup()

	accountID := f.insertAccount(t, "u1", 25000)
	closeTime := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	f.insertCloseEvent(t, accountID, "T1", "EURUSD", 1.1042, 50, 5, -3, closeTime, "")

	// The live path already produced this trade
	_, err := f.tradeRepo.Insert(&domain.Trade{
		UserID:       "u1",
		AccountID:    accountID,
		Ticket:       "T1",
		Symbol:       "EURUSD",
		Direction:    domain.DirectionBuy,
		OriginalLots: 0.5,
		EntryPrice:   1.1000,
		EntryTime:    closeTime.Add(-time.Hour),
		IsOpen:       true,
	})
	require.NoError(t, err)

	result, err := f.service.Recover("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Recovered)
	assert.Equal(t, 1, result.Skipped)
}

// A recovered trade without a stop gets its R from the equity
// fallback, and the run says so in the log.
func TestRecover_LogsEquityFallback(t *testing.T) {
	f, cleanup := newRecoveryFixture(t)
	defer cleanup()

	var logBuf bytes.Buffer
	log := zerolog.New(&logBuf).Level(zerolog.DebugLevel)
	f.service = NewService(
		NewEventRepository(f.eventsDB, log),
		NewAccountRepository(f.journalDB, log),
		trades.NewTradeRepository(f.journalDB, log),
		nil,
		log,
	)

	accountID := f.insertAccount(t, "u1", 25000)
	closeTime := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	f.insertCloseEvent(t, accountID, "T1", "EURUSD", 1.1042, 50, 0, 0, closeTime, "")

	result, err := f.service.Recover("u1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Recovered)

	assert.Contains(t, logBuf.String(), "equity fallback")
}

func TestRecover_NoAccounts(t *testing.T) {
	f, cleanup := newRecoveryFixture(t)
	defer cleanup()

	result, err := f.service.Recover("nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Recovered)
	assert.Empty(t, result.Tickets)
}

func formatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
