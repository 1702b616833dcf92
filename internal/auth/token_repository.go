// Package auth provides bearer-token authentication backed by the
// api_tokens table in journal.db.
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TokenRepository handles API token database operations
type TokenRepository struct {
	journalDB *sql.DB
	log       zerolog.Logger
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(journalDB *sql.DB, log zerolog.Logger) *TokenRepository {
	return &TokenRepository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "api_token").Logger(),
	}
}

// Resolve returns the user ID owning the token, or "" when the token
// is unknown.
func (r *TokenRepository) Resolve(token string) (string, error) {
	var userID string
	err := r.journalDB.QueryRow("SELECT user_id FROM api_tokens WHERE token = ?", token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve token: %w", err)
	}
	return userID, nil
}

// Create stores a new token for a user
func (r *TokenRepository) Create(token, userID, label string) error {
	var labelVal sql.NullString
	if label != "" {
		labelVal = sql.NullString{String: label, Valid: true}
	}

	_, err := r.journalDB.Exec(
		"INSERT INTO api_tokens (token, user_id, label, created_at) VALUES (?, ?, ?, ?)",
		token, userID, labelVal, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	r.log.Info().Str("user_id", userID).Str("label", label).Msg("API token created")
	return nil
}
