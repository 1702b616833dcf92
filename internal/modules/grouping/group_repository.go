// Package grouping clusters related trade fills into trade groups.
package grouping

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
)

// GroupRepository handles trade group database operations
type GroupRepository struct {
	journalDB *sql.DB // journal.db - trade_groups table
	log       zerolog.Logger
}

const groupColumns = `id, user_id, symbol, direction, first_entry_time, playbook_id, created_at`

// NewGroupRepository creates a new trade group repository
func NewGroupRepository(journalDB *sql.DB, log zerolog.Logger) *GroupRepository {
	return &GroupRepository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "trade_group").Logger(),
	}
}

// Create inserts a new trade group with a fresh UUID and returns it.
// FirstEntryTime is fixed here and never updated afterwards, even when
// later members with earlier entries join the group.
func (r *GroupRepository) Create(userID, symbol string, direction domain.Direction, firstEntryTime time.Time, playbookID *string) (*domain.TradeGroup, error) {
	group := &domain.TradeGroup{
		ID:             uuid.NewString(),
		UserID:         userID,
		Symbol:         symbol,
		Direction:      direction,
		FirstEntryTime: firstEntryTime.UTC(),
		PlaybookID:     playbookID,
		CreatedAt:      time.Now().UTC(),
	}

	query := `
		INSERT INTO trade_groups
		(id, user_id, symbol, direction, first_entry_time, playbook_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var playbook sql.NullString
	if playbookID != nil {
		playbook = sql.NullString{String: *playbookID, Valid: true}
	}

	_, err := r.journalDB.Exec(query,
		group.ID,
		group.UserID,
		group.Symbol,
		string(group.Direction),
		group.FirstEntryTime.Unix(),
		playbook,
		group.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade group: %w", err)
	}

	r.log.Info().
		Str("group_id", group.ID).
		Str("symbol", group.Symbol).
		Str("direction", string(group.Direction)).
		Msg("Trade group created")

	return group, nil
}

// GetByID retrieves a trade group by ID. Returns (nil, nil) when not found.
func (r *GroupRepository) GetByID(id string) (*domain.TradeGroup, error) {
	query := "SELECT " + groupColumns + " FROM trade_groups WHERE id = ?"

	var group domain.TradeGroup
	var firstEntryTime, createdAt int64
	var playbookID sql.NullString

	err := r.journalDB.QueryRow(query, id).Scan(
		&group.ID,
		&group.UserID,
		&group.Symbol,
		&group.Direction,
		&firstEntryTime,
		&playbookID,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade group: %w", err)
	}

	group.FirstEntryTime = time.Unix(firstEntryTime, 0).UTC()
	group.CreatedAt = time.Unix(createdAt, 0).UTC()
	if playbookID.Valid {
		group.PlaybookID = &playbookID.String
	}

	return &group, nil
}

// CountForUser returns the number of trade groups for a user
func (r *GroupRepository) CountForUser(userID string) (int, error) {
	var count int
	err := r.journalDB.QueryRow("SELECT COUNT(*) FROM trade_groups WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trade groups: %w", err)
	}
	return count, nil
}
