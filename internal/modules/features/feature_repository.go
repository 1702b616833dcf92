// Package features derives and stores per-trade feature rows used by
// downstream analysis. Features are pure functions of the trade
// snapshot, so recomputing is always safe.
package features

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
)

// FeatureRepository handles trade feature database operations
type FeatureRepository struct {
	journalDB *sql.DB // journal.db - trade_features table
	log       zerolog.Logger
}

// NewFeatureRepository creates a new feature repository
func NewFeatureRepository(journalDB *sql.DB, log zerolog.Logger) *FeatureRepository {
	return &FeatureRepository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "trade_features").Logger(),
	}
}

// Upsert writes the feature row for a trade, replacing any previous
// row. trade_features is keyed by trade_id, one row per trade.
func (r *FeatureRepository) Upsert(f *domain.TradeFeatures) error {
	query := `
		INSERT INTO trade_features
		(trade_id, day_of_week, time_since_session_open_mins, range_size_pips,
		 entry_percentile, entry_efficiency, exit_efficiency, stop_location_quality, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			day_of_week = excluded.day_of_week,
			time_since_session_open_mins = excluded.time_since_session_open_mins,
			range_size_pips = excluded.range_size_pips,
			entry_percentile = excluded.entry_percentile,
			entry_efficiency = excluded.entry_efficiency,
			exit_efficiency = excluded.exit_efficiency,
			stop_location_quality = excluded.stop_location_quality,
			computed_at = excluded.computed_at
	`

	_, err := r.journalDB.Exec(query,
		f.TradeID,
		f.DayOfWeek,
		nullFloat64Ptr(f.TimeSinceSessionOpenMins),
		nullFloat64Ptr(f.RangeSizePips),
		nullFloat64Ptr(f.EntryPercentile),
		nullFloat64Ptr(f.EntryEfficiency),
		nullFloat64Ptr(f.ExitEfficiency),
		nullFloat64Ptr(f.StopLocationQuality),
		f.ComputedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert trade features: %w", err)
	}

	return nil
}

// GetByTradeID retrieves the feature row for a trade. Returns
// (nil, nil) when no features have been computed yet.
func (r *FeatureRepository) GetByTradeID(tradeID int64) (*domain.TradeFeatures, error) {
	query := `
		SELECT trade_id, day_of_week, time_since_session_open_mins, range_size_pips,
		       entry_percentile, entry_efficiency, exit_efficiency, stop_location_quality, computed_at
		FROM trade_features
		WHERE trade_id = ?
	`

	var f domain.TradeFeatures
	var sessionMins, rangePips, entryPct, entryEff, exitEff, stopQuality sql.NullFloat64
	var computedAt int64

	err := r.journalDB.QueryRow(query, tradeID).Scan(
		&f.TradeID,
		&f.DayOfWeek,
		&sessionMins,
		&rangePips,
		&entryPct,
		&entryEff,
		&exitEff,
		&stopQuality,
		&computedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade features: %w", err)
	}

	if sessionMins.Valid {
		f.TimeSinceSessionOpenMins = &sessionMins.Float64
	}
	if rangePips.Valid {
		f.RangeSizePips = &rangePips.Float64
	}
	if entryPct.Valid {
		f.EntryPercentile = &entryPct.Float64
	}
	if entryEff.Valid {
		f.EntryEfficiency = &entryEff.Float64
	}
	if exitEff.Valid {
		f.ExitEfficiency = &exitEff.Float64
	}
	if stopQuality.Valid {
		f.StopLocationQuality = &stopQuality.Float64
	}
	f.ComputedAt = time.Unix(computedAt, 0).UTC()

	return &f, nil
}

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
