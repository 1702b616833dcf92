package auth

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTokenRepo(t *testing.T) (*TokenRepository, func()) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE api_tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			label TEXT,
			created_at INTEGER NOT NULL
		)`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewTokenRepository(db, log), func() { db.Close() }
}

func TestTokenRepository_Resolve(t *testing.T) {
	repo, cleanup := newTokenRepo(t)
	defer cleanup()

	require.NoError(t, repo.Create("tok-abc", "u1", "mt5 bridge"))

	userID, err := repo.Resolve("tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	userID, err = repo.Resolve("tok-unknown")
	require.NoError(t, err)
	assert.Empty(t, userID)
}

func TestMiddleware(t *testing.T) {
	repo, cleanup := newTokenRepo(t)
	defer cleanup()

	require.NoError(t, repo.Create("tok-abc", "u1", ""))

	log := zerolog.New(nil).Level(zerolog.Disabled)
	var seenUserID string
	handler := Middleware(repo, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		seenUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	testCases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic tok-abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer tok-nope", http.StatusUnauthorized},
		{"valid token", "Bearer tok-abc", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seenUserID = ""

			req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantStatus == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.NotEmpty(t, body["error"])
				assert.Empty(t, seenUserID)
			} else {
				assert.Equal(t, "u1", seenUserID)
			}
		})
	}
}

func TestUserIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)
}
