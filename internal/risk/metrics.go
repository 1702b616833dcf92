// Package risk computes the per-trade risk and price-efficiency
// metrics of the analytics pipeline. All metrics are independently
// nullable: missing inputs yield nil results, never errors or panics.
package risk

import (
	"math"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/symbols"
)

// RSource identifies which path produced an R-multiple value. The
// equity fallback is a percentage-of-equity stand-in, not a true risk
// multiple; callers that care about the distinction can inspect it.
type RSource string

const (
	RSourceStop   RSource = "stop"
	RSourceEquity RSource = "equity"
	RSourceNone   RSource = "none"
)

// Calculator computes risk metrics using an injectable pip table
type Calculator struct {
	pips PipTable
}

// NewCalculator creates a risk calculator. A nil pip table selects the
// built-in heuristic DefaultPipTable.
func NewCalculator(pips PipTable) *Calculator {
	if pips == nil {
		pips = DefaultPipTable{}
	}
	return &Calculator{pips: pips}
}

// RMultiple computes the R-multiple for a closed trade.
//
// Primary path: a usable initial stop (non-nil, different from entry)
// defines the risk amount via pip distance and pip value. Fallback
// path: with no usable stop, net PnL as a percentage of entry equity
// stands in for R. Returns nil with RSourceNone when neither path has
// its inputs.
func (c *Calculator) RMultiple(symbol string, entry float64, sl *float64, lots, netPnl float64, equityAtEntry *float64) (*float64, RSource) {
	normalized := symbols.Normalize(symbol)

	if sl != nil && *sl != entry {
		pipSize := c.pips.PipSize(normalized)
		if pipSize > 0 {
			stopDistancePips := math.Abs(entry-*sl) / pipSize
			riskAmount := stopDistancePips * c.pips.PipValue(normalized, lots)
			if riskAmount > 0 {
				r := round2(netPnl / riskAmount)
				return &r, RSourceStop
			}
		}
	}

	if equityAtEntry != nil && *equityAtEntry > 0 {
		r := round2((netPnl / *equityAtEntry) * 100)
		return &r, RSourceEquity
	}

	return nil, RSourceNone
}

// EntryPercentile scores where the entry sits inside the planned
// stop-to-target range, direction-agnostic, in [0,100]. A zero range
// scores 50. Nil when sl or tp is missing.
func (c *Calculator) EntryPercentile(entry float64, sl, tp *float64) *float64 {
	if sl == nil || tp == nil {
		return nil
	}

	r := math.Abs(*tp - *sl)
	if r == 0 {
		mid := 50.0
		return &mid
	}

	p := clamp(math.Abs(entry-*sl)/r*100, 0, 100)
	return &p
}

// EntryEfficiency rewards entries nearer the stop: a buy filled right
// at the stop scores 100, right at the target 0. Mirrored for sells.
// Nil when sl or tp is missing or the range is degenerate.
func (c *Calculator) EntryEfficiency(direction domain.Direction, entry float64, sl, tp *float64) *float64 {
	if sl == nil || tp == nil {
		return nil
	}

	r := math.Abs(*tp - *sl)
	if r == 0 {
		return nil
	}

	var eff float64
	if direction == domain.DirectionSell {
		eff = 100 - ((*sl-entry)/r)*100
	} else {
		eff = 100 - ((entry-*sl)/r)*100
	}

	eff = clamp(eff, 0, 100)
	return &eff
}

// ExitEfficiency scores how much of the stop-to-target range the exit
// captured, direction-aware, in [0,100]. Nil when exit, sl or tp is
// missing or the range is degenerate.
func (c *Calculator) ExitEfficiency(direction domain.Direction, exit, sl, tp *float64) *float64 {
	if exit == nil || sl == nil || tp == nil {
		return nil
	}

	r := math.Abs(*tp - *sl)
	if r == 0 {
		return nil
	}

	var eff float64
	if direction == domain.DirectionSell {
		eff = ((*sl - *exit) / r) * 100
	} else {
		eff = ((*exit - *sl) / r) * 100
	}

	eff = clamp(eff, 0, 100)
	return &eff
}

// StopLocationQuality scores the planned reward:risk ratio on a
// 0-100 scale: 1:1 scores 50, 2:1 scores 75, 3:1 and beyond cap at
// 100. Nil when sl or tp is missing or the risk distance is zero.
func (c *Calculator) StopLocationQuality(entry float64, sl, tp *float64) *float64 {
	if sl == nil || tp == nil {
		return nil
	}

	riskDistance := math.Abs(entry - *sl)
	if riskDistance == 0 {
		return nil
	}

	rr := math.Abs(*tp-entry) / riskDistance
	quality := math.Min(100, 25+rr*25)
	return &quality
}

// RangeSizePips converts the stop-to-target range into pips for the
// symbol's instrument family. Nil when sl or tp is missing.
func (c *Calculator) RangeSizePips(symbol string, sl, tp *float64) *float64 {
	if sl == nil || tp == nil {
		return nil
	}

	pipSize := c.pips.PipSize(symbols.Normalize(symbol))
	if pipSize <= 0 {
		return nil
	}

	pips := math.Abs(*tp-*sl) / pipSize
	return &pips
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
