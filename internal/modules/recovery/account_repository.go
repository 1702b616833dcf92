package recovery

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
)

// AccountRepository reads account rows from journal.db
type AccountRepository struct {
	journalDB *sql.DB
	log       zerolog.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(journalDB *sql.DB, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "account").Logger(),
	}
}

// GetByUser retrieves all accounts belonging to a user
func (r *AccountRepository) GetByUser(userID string) ([]domain.Account, error) {
	query := `
		SELECT id, user_id, terminal_id, currency, current_equity, created_at
		FROM accounts
		WHERE user_id = ?
		ORDER BY id ASC
	`

	rows, err := r.journalDB.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		var terminalID sql.NullString
		var createdAt int64

		err := rows.Scan(
			&account.ID,
			&account.UserID,
			&terminalID,
			&account.Currency,
			&account.CurrentEquity,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		if terminalID.Valid {
			account.TerminalID = terminalID.String
		}
		account.CreatedAt = time.Unix(createdAt, 0).UTC()

		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}
