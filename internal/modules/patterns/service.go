// Package patterns mines a user's closed trades for statistically
// notable conditions. Patterns are computed fresh on every request and
// never persisted.
package patterns

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/trades"
	"github.com/aristath/journal/internal/sessions"
	"github.com/aristath/journal/internal/symbols"
)

// DefaultMinTrades is the minimum bucket size for a pattern to be
// reported when a request does not specify one.
const DefaultMinTrades = 3

// severityThreshold is the absolute average R beyond which a pattern
// reads as positive or negative rather than neutral.
const severityThreshold = 0.3

// DateRange is the [oldest, newest] entry-time span of the analyzed trades
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Summary aggregates the headline findings of one analysis. The field
// names are the wire contract consumed by the dashboard; do not rename
// the JSON keys.
type Summary struct {
	TotalTradesAnalyzed int        `json:"totalTradesAnalyzed"`
	BestConditions      []string   `json:"bestConditions"`
	WorstConditions     []string   `json:"worstConditions"`
	DateRange           *DateRange `json:"dataRange,omitempty"`
	Message             string     `json:"message,omitempty"`
}

// Analysis is the full result of one pattern mining run
type Analysis struct {
	Patterns []domain.Pattern `json:"patterns"`
	Summary  Summary          `json:"summary"`
}

// Service mines closed trades across five bucketing dimensions:
// weekday, session, session x direction, instrument family, and
// time-of-day band. All time bucketing uses UTC.
type Service struct {
	tradeRepo *trades.TradeRepository
	log       zerolog.Logger
}

// NewService creates a pattern mining service
func NewService(tradeRepo *trades.TradeRepository, log zerolog.Logger) *Service {
	return &Service{
		tradeRepo: tradeRepo,
		log:       log.With().Str("service", "patterns").Logger(),
	}
}

// bucket accumulates the trades falling into one pattern condition
type bucket struct {
	patternType string
	category    string
	wins        int
	count       int
	totalPnl    float64
	rValues     []float64
}

// Analyze mines the user's closed non-archived trades. An account ID
// narrows the set; minTrades below 1 selects DefaultMinTrades. Fewer
// closed trades than minTrades yields an empty result with a message
// rather than statistically meaningless patterns.
func (s *Service) Analyze(userID string, accountID *int64, minTrades int) (*Analysis, error) {
	if minTrades < 1 {
		minTrades = DefaultMinTrades
	}

	closed, err := s.tradeRepo.GetClosed(userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load closed trades: %w", err)
	}

	analysis := &Analysis{
		Patterns: []domain.Pattern{},
		Summary: Summary{
			TotalTradesAnalyzed: len(closed),
			BestConditions:      []string{},
			WorstConditions:     []string{},
		},
	}

	if len(closed) < minTrades {
		analysis.Summary.Message = fmt.Sprintf("Not enough closed trades for analysis (%d of %d required)", len(closed), minTrades)
		return analysis, nil
	}

	buckets := make(map[string]*bucket)
	for i := range closed {
		s.accumulate(buckets, &closed[i])
	}

	for _, b := range buckets {
		if b.count < minTrades {
			continue
		}
		analysis.Patterns = append(analysis.Patterns, b.toPattern())
	}

	// Strongest average R first, regardless of sign
	sort.SliceStable(analysis.Patterns, func(i, j int) bool {
		return math.Abs(analysis.Patterns[i].Stats.AvgR) > math.Abs(analysis.Patterns[j].Stats.AvgR)
	})

	for _, p := range analysis.Patterns {
		switch p.Severity {
		case domain.SeverityPositive:
			if len(analysis.Summary.BestConditions) < 3 {
				analysis.Summary.BestConditions = append(analysis.Summary.BestConditions, p.Insight)
			}
		case domain.SeverityNegative:
			if len(analysis.Summary.WorstConditions) < 3 {
				analysis.Summary.WorstConditions = append(analysis.Summary.WorstConditions, p.Insight)
			}
		}
	}

	analysis.Summary.DateRange = entryRange(closed)

	s.log.Info().
		Str("user_id", userID).
		Int("trades", len(closed)).
		Int("patterns", len(analysis.Patterns)).
		Msg("Pattern analysis complete")

	return analysis, nil
}

// accumulate adds one trade to its bucket in each dimension
func (s *Service) accumulate(buckets map[string]*bucket, trade *domain.Trade) {
	entry := trade.EntryTime.UTC()
	session := sessions.DisplayName(string(trade.Session))

	dims := []struct {
		patternType string
		category    string
	}{
		{"day_of_week", entry.Weekday().String()},
		{"session", session},
		{"session_direction", session + " " + string(trade.Direction)},
		{"symbol", symbols.PatternKey(trade.Symbol)},
		{"time_of_day", hourBand(entry.Hour())},
	}

	for _, d := range dims {
		key := d.patternType + "|" + d.category
		b, ok := buckets[key]
		if !ok {
			b = &bucket{patternType: d.patternType, category: d.category}
			buckets[key] = b
		}

		b.count++
		if trade.NetPnl != nil {
			b.totalPnl += *trade.NetPnl
			if *trade.NetPnl > 0 {
				b.wins++
			}
		}
		if trade.RMultipleActual != nil {
			b.rValues = append(b.rValues, *trade.RMultipleActual)
		}
	}
}

func (b *bucket) toPattern() domain.Pattern {
	winRate := float64(b.wins) / float64(b.count) * 100

	avgR := 0.0
	if len(b.rValues) > 0 {
		avgR = stat.Mean(b.rValues, nil)
	}

	severity := domain.SeverityNeutral
	recommendation := "No strong edge in this condition either way"
	switch {
	case avgR > severityThreshold:
		severity = domain.SeverityPositive
		recommendation = fmt.Sprintf("Performance under '%s' is strong; consider prioritizing these setups", b.category)
	case avgR < -severityThreshold:
		severity = domain.SeverityNegative
		recommendation = fmt.Sprintf("Performance under '%s' is costing you; consider reducing exposure", b.category)
	}

	insight := fmt.Sprintf("%s: %.1f%% WR, %+.2fR avg, %+.2f", b.category, winRate, avgR, b.totalPnl)

	return domain.Pattern{
		Type:           b.patternType,
		Category:       b.category,
		Insight:        insight,
		Severity:       severity,
		Recommendation: recommendation,
		Stats: domain.PatternStats{
			Trades:   b.count,
			WinRate:  math.Round(winRate*10) / 10,
			AvgR:     math.Round(avgR*100) / 100,
			TotalPnl: math.Round(b.totalPnl*100) / 100,
		},
	}
}

// hourBand maps a UTC hour to a coarse time-of-day label
func hourBand(hour int) string {
	switch {
	case hour >= 4 && hour < 11:
		return "morning"
	case hour >= 11 && hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

func entryRange(closed []domain.Trade) *DateRange {
	if len(closed) == 0 {
		return nil
	}

	r := &DateRange{From: closed[0].EntryTime, To: closed[0].EntryTime}
	for _, t := range closed[1:] {
		if t.EntryTime.Before(r.From) {
			r.From = t.EntryTime
		}
		if t.EntryTime.After(r.To) {
			r.To = t.EntryTime
		}
	}
	return r
}
