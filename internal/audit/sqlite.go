package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists audit events to a single SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures
// the schema exists. WAL mode keeps writers from stalling the server's
// recorder goroutine behind readers.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			type TEXT NOT NULL,
			player_id TEXT,
			payload TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_game ON events (game_id, created_at)`)
	if err != nil {
		return fmt.Errorf("create events index: %w", err)
	}
	return nil
}

// Record inserts one event
func (s *SQLiteStore) Record(ctx context.Context, event Event) error {
	var payload any
	if event.Payload != nil {
		payload = string(event.Payload)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, game_id, type, player_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, event.GameID, event.Type, event.PlayerID, payload, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// EventsForGame returns a game's events oldest first, used by tooling
// and tests.
func (s *SQLiteStore) EventsForGame(ctx context.Context, gameID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, type, player_id, payload, created_at
		FROM events WHERE game_id = ? ORDER BY created_at, id
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var playerID, payload sql.NullString
		if err := rows.Scan(&event.ID, &event.GameID, &event.Type, &playerID, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.PlayerID = playerID.String
		if payload.Valid {
			event.Payload = []byte(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
