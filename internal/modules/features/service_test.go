package features

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/trades"
	journaltest "github.com/aristath/journal/internal/testing"
)

func newFeaturesFixture(t *testing.T) (*Service, *trades.TradeRepository, func()) {
	t.Helper()

	db, cleanup := journaltest.NewTestDB(t, "journal")
	log := zerolog.New(nil).Level(zerolog.Disabled)

	tradeRepo := trades.NewTradeRepository(db.Conn(), log)
	featureRepo := NewFeatureRepository(db.Conn(), log)
	service := NewService(tradeRepo, featureRepo, nil, log)

	return service, tradeRepo, cleanup
}

func f(v float64) *float64 { return &v }

func TestCompute_FullTrade(t *testing.T) {
	service, repo, cleanup := newFeaturesFixture(t)
	defer cleanup()

	// Monday 13:30 UTC: inside the overlap window, 30 minutes in
	entryTime := time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC)
	exitPrice := 1.1050
	exitTime := entryTime.Add(time.Hour)
	netPnl := 50.0

	id, err := repo.Insert(&domain.Trade{
		UserID:       "u1",
		AccountID:    1,
		Ticket:       "T1",
		Symbol:       "EURUSD",
		Direction:    domain.DirectionBuy,
		OriginalLots: 1,
		EntryPrice:   1.1000,
		EntryTime:    entryTime,
		ExitPrice:    &exitPrice,
		ExitTime:     &exitTime,
		SLInitial:    f(1.0950),
		TPInitial:    f(1.1050),
		NetPnl:       &netPnl,
		IsOpen:       false,
	})
	require.NoError(t, err)

	features, err := service.Compute(id)
	require.NoError(t, err)

	assert.Equal(t, 1, features.DayOfWeek) // Monday
	require.NotNil(t, features.TimeSinceSessionOpenMins)
	assert.InDelta(t, 30.0, *features.TimeSinceSessionOpenMins, 0.001)
	require.NotNil(t, features.RangeSizePips)
	assert.InDelta(t, 100.0, *features.RangeSizePips, 0.001) // 0.0100 / 0.0001
	require.NotNil(t, features.EntryPercentile)
	assert.InDelta(t, 50.0, *features.EntryPercentile, 0.001)
	require.NotNil(t, features.EntryEfficiency)
	assert.InDelta(t, 50.0, *features.EntryEfficiency, 0.001)
	require.NotNil(t, features.ExitEfficiency)
	assert.InDelta(t, 100.0, *features.ExitEfficiency, 0.001)
	require.NotNil(t, features.StopLocationQuality)
	assert.InDelta(t, 50.0, *features.StopLocationQuality, 0.001) // 1:1 reward:risk
}

func TestCompute_TradeWithoutStopOrTarget(t *testing.T) {
	service, repo, cleanup := newFeaturesFixture(t)
	defer cleanup()

	entryTime := time.Date(2025, 3, 12, 23, 30, 0, 0, time.UTC) // outside all UTC windows

	id, err := repo.Insert(&domain.Trade{
		UserID:       "u1",
		AccountID:    1,
		Ticket:       "T2",
		Symbol:       "EURUSD",
		Direction:    domain.DirectionBuy,
		OriginalLots: 1,
		EntryPrice:   1.1000,
		EntryTime:    entryTime,
		IsOpen:       true,
	})
	require.NoError(t, err)

	features, err := service.Compute(id)
	require.NoError(t, err)

	// Day of week always computes; everything range-derived is nil
	assert.Equal(t, 3, features.DayOfWeek) // Wednesday
	assert.Nil(t, features.TimeSinceSessionOpenMins)
	assert.Nil(t, features.RangeSizePips)
	assert.Nil(t, features.EntryPercentile)
	assert.Nil(t, features.EntryEfficiency)
	assert.Nil(t, features.ExitEfficiency)
	assert.Nil(t, features.StopLocationQuality)
}

// Recomputing replaces the stored row instead of failing on the
// primary key.
func TestCompute_UpsertsOnRecompute(t *testing.T) {
	service, repo, cleanup := newFeaturesFixture(t)
	defer cleanup()

	entryTime := time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC)

	id, err := repo.Insert(&domain.Trade{
		UserID:       "u1",
		AccountID:    1,
		Ticket:       "T3",
		Symbol:       "EURUSD",
		Direction:    domain.DirectionBuy,
		OriginalLots: 1,
		EntryPrice:   1.1000,
		EntryTime:    entryTime,
		SLInitial:    f(1.0950),
		TPInitial:    f(1.1050),
		IsOpen:       true,
	})
	require.NoError(t, err)

	_, err = service.Compute(id)
	require.NoError(t, err)

	second, err := service.Compute(id)
	require.NoError(t, err)

	stored, err := service.featureRepo.GetByTradeID(id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, second.DayOfWeek, stored.DayOfWeek)
}

func TestCompute_UnknownTrade(t *testing.T) {
	service, _, cleanup := newFeaturesFixture(t)
	defer cleanup()

	_, err := service.Compute(999)
	assert.ErrorIs(t, err, ErrTradeNotFound)
}
