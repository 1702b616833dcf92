package features

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/trades"
	"github.com/aristath/journal/internal/risk"
	"github.com/aristath/journal/internal/sessions"
)

// ErrTradeNotFound is returned when feature computation targets a trade
// ID that does not exist.
var ErrTradeNotFound = errors.New("trade not found")

// Service computes the derived feature row for a trade. Each feature is
// independently nullable: a trade without stop or target simply gets
// nil for the range-derived features, never an error.
type Service struct {
	tradeRepo   *trades.TradeRepository
	featureRepo *FeatureRepository
	calc        *risk.Calculator
	log         zerolog.Logger
}

// NewService creates a feature computation service
func NewService(tradeRepo *trades.TradeRepository, featureRepo *FeatureRepository, calc *risk.Calculator, log zerolog.Logger) *Service {
	if calc == nil {
		calc = risk.NewCalculator(nil)
	}
	return &Service{
		tradeRepo:   tradeRepo,
		featureRepo: featureRepo,
		calc:        calc,
		log:         log.With().Str("service", "features").Logger(),
	}
}

// Compute derives the feature row for a trade from its current
// snapshot and upserts it, replacing any previous row.
func (s *Service) Compute(tradeID int64) (*domain.TradeFeatures, error) {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade: %w", err)
	}
	if trade == nil {
		return nil, ErrTradeNotFound
	}

	f := s.derive(trade)

	if err := s.featureRepo.Upsert(f); err != nil {
		return nil, fmt.Errorf("failed to store features: %w", err)
	}

	s.log.Debug().Int64("trade_id", tradeID).Msg("Trade features computed")

	return f, nil
}

func (s *Service) derive(trade *domain.Trade) *domain.TradeFeatures {
	entry := trade.EntryTime.UTC()
	sessionMins, _ := sessions.MinutesSinceOpen(entry)

	return &domain.TradeFeatures{
		TradeID:                  trade.ID,
		DayOfWeek:                int(entry.Weekday()),
		TimeSinceSessionOpenMins: sessionMins,
		RangeSizePips:            s.calc.RangeSizePips(trade.Symbol, trade.SLInitial, trade.TPInitial),
		EntryPercentile:          s.calc.EntryPercentile(trade.EntryPrice, trade.SLInitial, trade.TPInitial),
		EntryEfficiency:          s.calc.EntryEfficiency(trade.Direction, trade.EntryPrice, trade.SLInitial, trade.TPInitial),
		ExitEfficiency:           s.calc.ExitEfficiency(trade.Direction, trade.ExitPrice, trade.SLInitial, trade.TPInitial),
		StopLocationQuality:      s.calc.StopLocationQuality(trade.EntryPrice, trade.SLInitial, trade.TPInitial),
		ComputedAt:               time.Now().UTC(),
	}
}
