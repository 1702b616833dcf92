package trades

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/domain"
	journaltest "github.com/aristath/journal/internal/testing"
)

func newTradeRepo(t *testing.T) (*TradeRepository, func()) {
	t.Helper()

	db, cleanup := journaltest.NewTestDB(t, "journal")
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewTradeRepository(db.Conn(), log), cleanup
}

func fptr(v float64) *float64 { return &v }

func TestInsertAndGetByID(t *testing.T) {
	repo, cleanup := newTradeRepo(t)
	defer cleanup()

	entryTime := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	exitPrice := 1.1042
	exitTime := entryTime.Add(45 * time.Minute)
	netPnl := 42.0
	duration := int64(45 * 60)

	id, err := repo.Insert(&domain.Trade{
		UserID:          "u1",
		AccountID:       1,
		TerminalID:      "mt5-1",
		Ticket:          "T1",
		Symbol:          "EURUSD",
		Direction:       domain.DirectionBuy,
		TotalLots:       0,
		OriginalLots:    0.5,
		EntryPrice:      1.1000,
		EntryTime:       entryTime,
		ExitPrice:       &exitPrice,
		ExitTime:        &exitTime,
		SLInitial:       fptr(1.0950),
		NetPnl:          &netPnl,
		DurationSeconds: &duration,
		Session:         domain.SessionNewYorkAM,
		IsOpen:          false,
	})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	trade, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, "u1", trade.UserID)
	assert.Equal(t, "mt5-1", trade.TerminalID)
	assert.Equal(t, "T1", trade.Ticket)
	assert.Equal(t, domain.DirectionBuy, trade.Direction)
	assert.Equal(t, entryTime.Unix(), trade.EntryTime.Unix())
	require.NotNil(t, trade.ExitTime)
	assert.Equal(t, exitTime.Unix(), trade.ExitTime.Unix())
	require.NotNil(t, trade.SLInitial)
	assert.Equal(t, 1.0950, *trade.SLInitial)
	assert.Nil(t, trade.TPInitial)
	require.NotNil(t, trade.NetPnl)
	assert.Equal(t, 42.0, *trade.NetPnl)
	assert.Equal(t, domain.SessionNewYorkAM, trade.Session)
	assert.False(t, trade.IsOpen)
	assert.Nil(t, trade.TradeGroupID)
	require.NotNil(t, trade.CreatedAt)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, cleanup := newTradeRepo(t)
	defer cleanup()

	trade, err := repo.GetByID(999)
	require.NoError(t, err)
	assert.Nil(t, trade)
}

func TestInsert_RejectsInvalidTrade(t *testing.T) {
	repo, cleanup := newTradeRepo(t)
	defer cleanup()

	// Closed trade without exit fields fails validation
	_, err := repo.Insert(&domain.Trade{
		UserID:       "u1",
		AccountID:    1,
		Ticket:       "T1",
		Symbol:       "EURUSD",
		Direction:    domain.DirectionBuy,
		OriginalLots: 1,
		EntryPrice:   1.1000,
		EntryTime:    time.Now(),
		IsOpen:       false,
	})
	assert.Error(t, err)
}

func TestInsert_DuplicateTicket(t *testing.T) {
	repo, cleanup := newTradeRepo(t)
	defer cleanup()

	trade := domain.Trade{
		UserID:       "u1",
		AccountID:    1,
		Ticket:       "T1",
		Symbol:       "EURUSD",
		Direction:    domain.DirectionBuy,
		OriginalLots: 1,
		EntryPrice:   1.1000,
		EntryTime:    time.Now(),
		IsOpen:       true,
	}

	_, err := repo.Insert(&trade)
	require.NoError(t, err)

	_, err = repo.Insert(&trade)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")

	// Same ticket under another user is fine
	other := trade
	other.UserID = "u2"
	_, err = repo.Insert(&other)
	assert.NoError(t, err)
}

func TestExistsTicket(t *testing.T) {
	repo, cleanup := newTradeRepo(t)
	defer cleanup()

	_, err := repo.Insert(&domain.Trade{
		UserID:       "u1",
		AccountID:    1,
		Ticket:       "T1",
		Symbol:       "EURUSD",
		Direction:    domain.DirectionBuy,
		OriginalLots: 1,
		EntryPrice:   1.1000,
		EntryTime:    time.Now(),
		IsOpen:       true,
	})
	require.NoError(t, err)

	exists, err := repo.ExistsTicket("u1", "T1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsTicket("u1", "T2")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsTicket("u2", "T1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetClosed_FiltersByAccount(t *testing.T) {
	repo, cleanup := newTradeRepo(t)
	defer cleanup()

	entryTime := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	exitPrice := 1.1042
	exitTime := entryTime.Add(time.Hour)

	insert := func(ticket string, accountID int64, isOpen bool) {
		trade := domain.Trade{
			UserID:       "u1",
			AccountID:    accountID,
			Ticket:       ticket,
			Symbol:       "EURUSD",
			Direction:    domain.DirectionBuy,
			OriginalLots: 1,
			EntryPrice:   1.1000,
			EntryTime:    entryTime,
			IsOpen:       isOpen,
		}
		if !isOpen {
			trade.ExitPrice = &exitPrice
			trade.ExitTime = &exitTime
		}
		_, err := repo.Insert(&trade)
		require.NoError(t, err)
	}

	insert("A1", 1, false)
	insert("A2", 1, true)
	insert("B1", 2, false)

	closed, err := repo.GetClosed("u1", nil)
	require.NoError(t, err)
	assert.Len(t, closed, 2)

	accountID := int64(2)
	closed, err = repo.GetClosed("u1", &accountID)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "B1", closed[0].Ticket)
}

func TestList_OrdersNewestFirst(t *testing.T) {
	repo, cleanup := newTradeRepo(t)
	defer cleanup()

	t0 := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	for i, ticket := range []string{"T1", "T2", "T3"} {
		_, err := repo.Insert(&domain.Trade{
			UserID:       "u1",
			AccountID:    1,
			Ticket:       ticket,
			Symbol:       "EURUSD",
			Direction:    domain.DirectionBuy,
			OriginalLots: 1,
			EntryPrice:   1.1000,
			EntryTime:    t0.Add(time.Duration(i) * time.Hour),
			IsOpen:       true,
		})
		require.NoError(t, err)
	}

	list, err := repo.List("u1", nil, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "T3", list[0].Ticket)
	assert.Equal(t, "T2", list[1].Ticket)
}
