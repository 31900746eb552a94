package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	// import the SQLite driver to register it with the database/sql package.
	_ "modernc.org/sqlite"
)

const matchesTable = `CREATE TABLE IF NOT EXISTS matches (
	id            TEXT PRIMARY KEY,
	room_id       TEXT NOT NULL,
	series_id     TEXT NOT NULL DEFAULT '',
	game_number   INTEGER NOT NULL,
	winner_id     TEXT NOT NULL DEFAULT '',
	finish_reason TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL,
	finished_at   INTEGER NOT NULL,
	record        TEXT NOT NULL
)`

const matchesBySeriesIndex = `CREATE INDEX IF NOT EXISTS matches_series_id ON matches (series_id, game_number)`

type Storage struct {
	Connection *sql.DB
}

// NewSQLite - opens the match archive database.
func NewSQLite(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

func (that *Storage) Init(ctx context.Context) error {
	for _, query := range []string{matchesTable, matchesBySeriesIndex} {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *Storage) Close() error {
	return that.Connection.Close()
}
