package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestRMultiple_StopPath(t *testing.T) {
	calc := NewCalculator(nil)

	// 50 pip stop on EURUSD at 1 lot risks $500; $50 profit is 0.10R
	r, source := calc.RMultiple("EURUSD", 1.1000, f(1.0950), 1.0, 50, nil)
	require.NotNil(t, r)
	assert.Equal(t, RSourceStop, source)
	assert.InDelta(t, 0.10, *r, 0.001)

	// Losing trade goes negative
	r, _ = calc.RMultiple("EURUSD", 1.1000, f(1.0950), 1.0, -250, nil)
	require.NotNil(t, r)
	assert.InDelta(t, -0.50, *r, 0.001)
}

func TestRMultiple_StopPathUsesPipFamily(t *testing.T) {
	calc := NewCalculator(nil)

	// JPY pair: 50 pip stop (0.50 price distance, pip 0.01) at 1 lot
	// risks 50 * 7.5 = 375
	r, source := calc.RMultiple("USDJPY", 150.00, f(149.50), 1.0, 375, nil)
	require.NotNil(t, r)
	assert.Equal(t, RSourceStop, source)
	assert.InDelta(t, 1.00, *r, 0.001)

	// Decorated symbols resolve the same family
	r2, _ := calc.RMultiple("USDJPY.a", 150.00, f(149.50), 1.0, 375, nil)
	require.NotNil(t, r2)
	assert.InDelta(t, *r, *r2, 0.001)
}

func TestRMultiple_EquityFallback(t *testing.T) {
	calc := NewCalculator(nil)

	// No stop: 250 profit on 10000 equity reads as 2.50
	r, source := calc.RMultiple("EURUSD", 1.1000, nil, 1.0, 250, f(10000))
	require.NotNil(t, r)
	assert.Equal(t, RSourceEquity, source)
	assert.InDelta(t, 2.50, *r, 0.001)

	// Stop equal to entry is unusable and falls through to equity
	r, source = calc.RMultiple("EURUSD", 1.1000, f(1.1000), 1.0, 250, f(10000))
	require.NotNil(t, r)
	assert.Equal(t, RSourceEquity, source)
}

func TestRMultiple_NoInputs(t *testing.T) {
	calc := NewCalculator(nil)

	r, source := calc.RMultiple("EURUSD", 1.1000, nil, 1.0, 50, nil)
	assert.Nil(t, r)
	assert.Equal(t, RSourceNone, source)

	// Zero equity is not a usable fallback
	r, source = calc.RMultiple("EURUSD", 1.1000, nil, 1.0, 50, f(0))
	assert.Nil(t, r)
	assert.Equal(t, RSourceNone, source)
}

func TestEntryPercentile(t *testing.T) {
	calc := NewCalculator(nil)

	// Entry midway between stop and target
	p := calc.EntryPercentile(1.1000, f(1.0950), f(1.1050))
	require.NotNil(t, p)
	assert.InDelta(t, 50.0, *p, 0.001)

	// Degenerate range scores the midpoint
	p = calc.EntryPercentile(1.1000, f(1.1000), f(1.1000))
	require.NotNil(t, p)
	assert.InDelta(t, 50.0, *p, 0.001)

	assert.Nil(t, calc.EntryPercentile(1.1000, nil, f(1.1050)))
	assert.Nil(t, calc.EntryPercentile(1.1000, f(1.0950), nil))
}

// A buy and a sell entered symmetrically in their ranges must score the
// same efficiency.
func TestEntryEfficiency_DirectionSymmetry(t *testing.T) {
	calc := NewCalculator(nil)

	buy := calc.EntryEfficiency(domain.DirectionBuy, 1.1000, f(1.0950), f(1.1050))
	sell := calc.EntryEfficiency(domain.DirectionSell, 1.1000, f(1.1050), f(1.0950))
	require.NotNil(t, buy)
	require.NotNil(t, sell)
	assert.InDelta(t, 50.0, *buy, 0.001)
	assert.InDelta(t, *buy, *sell, 0.001)

	// Buy filled at the stop scores 100
	atStop := calc.EntryEfficiency(domain.DirectionBuy, 1.0950, f(1.0950), f(1.1050))
	require.NotNil(t, atStop)
	assert.InDelta(t, 100.0, *atStop, 0.001)

	// Degenerate range yields nil, unlike EntryPercentile
	assert.Nil(t, calc.EntryEfficiency(domain.DirectionBuy, 1.1000, f(1.1000), f(1.1000)))
}

func TestExitEfficiency(t *testing.T) {
	calc := NewCalculator(nil)

	// Buy exiting at the target captures the whole range
	e := calc.ExitEfficiency(domain.DirectionBuy, f(1.1050), f(1.0950), f(1.1050))
	require.NotNil(t, e)
	assert.InDelta(t, 100.0, *e, 0.001)

	// Sell exiting at its target mirrors the buy
	e = calc.ExitEfficiency(domain.DirectionSell, f(1.0950), f(1.1050), f(1.0950))
	require.NotNil(t, e)
	assert.InDelta(t, 100.0, *e, 0.001)

	// Exit beyond the stop clamps to 0
	e = calc.ExitEfficiency(domain.DirectionBuy, f(1.0900), f(1.0950), f(1.1050))
	require.NotNil(t, e)
	assert.InDelta(t, 0.0, *e, 0.001)

	assert.Nil(t, calc.ExitEfficiency(domain.DirectionBuy, nil, f(1.0950), f(1.1050)))
}

func TestStopLocationQuality(t *testing.T) {
	calc := NewCalculator(nil)

	// 1:1 reward:risk scores 50
	q := calc.StopLocationQuality(1.1000, f(1.0950), f(1.1050))
	require.NotNil(t, q)
	assert.InDelta(t, 50.0, *q, 0.001)

	// 2:1 scores 75
	q = calc.StopLocationQuality(1.1000, f(1.0950), f(1.1100))
	require.NotNil(t, q)
	assert.InDelta(t, 75.0, *q, 0.001)

	// 4:1 caps at 100
	q = calc.StopLocationQuality(1.1000, f(1.0950), f(1.1200))
	require.NotNil(t, q)
	assert.InDelta(t, 100.0, *q, 0.001)

	// Stop at entry has no risk distance
	assert.Nil(t, calc.StopLocationQuality(1.1000, f(1.1000), f(1.1050)))
}

func TestDefaultPipTable(t *testing.T) {
	table := DefaultPipTable{}

	testCases := []struct {
		symbol   string
		pipSize  float64
		pipValue float64 // per 1.0 lot
	}{
		{"EURUSD", 0.0001, 10.0},
		{"USDJPY", 0.01, 7.5},
		{"XAUUSD", 0.1, 10.0},
		{"US30", 1.0, 0.10},
		{"BTCUSD", 1.0, 1.0},
		{"GBPAUD", 0.0001, 10.0}, // unknown family falls back to forex defaults
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.pipSize, table.PipSize(tc.symbol), "pip size for %s", tc.symbol)
		assert.Equal(t, tc.pipValue, table.PipValue(tc.symbol, 1.0), "pip value for %s", tc.symbol)
	}

	// Pip value scales with lot size
	assert.InDelta(t, 2.5, table.PipValue("EURUSD", 0.25), 0.001)
}
