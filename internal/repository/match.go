package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository/storage"
)

// MatchRepository is the archive of finished games, kept for replays and audits of the opening.
type MatchRepository interface {
	Save(ctx context.Context, record *entity.MatchRecord) error
	GetByID(ctx context.Context, id string) (*entity.MatchRecord, error)
	ListBySeries(ctx context.Context, seriesID string) ([]*entity.MatchRecord, error)
}

type dbMatch struct {
	db *sql.DB
}

func NewMatchRepository(store *storage.Storage) MatchRepository {
	return &dbMatch{
		db: store.Connection,
	}
}

// Save - stores the record once; saving the same match id again is a no-op.
func (that *dbMatch) Save(ctx context.Context, record *entity.MatchRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal match record: %w", err)
	}

	const query = `INSERT INTO matches
		(id, room_id, series_id, game_number, winner_id, finish_reason, duration_ms, finished_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	_, err = that.db.ExecContext(ctx, query,
		record.ID,
		record.RoomID,
		record.SeriesID,
		record.GameNumber,
		record.WinnerID,
		record.FinishReason,
		record.Duration.Milliseconds(),
		record.FinishedAt.UTC().UnixMilli(),
		string(recordJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save match record: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByID(ctx context.Context, id string) (*entity.MatchRecord, error) {
	var recordJSON string

	err := that.db.QueryRowContext(ctx, `SELECT record FROM matches WHERE id = ?`, id).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrMatchNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match record: %w", err)
	}

	return decodeMatch(recordJSON)
}

func (that *dbMatch) ListBySeries(ctx context.Context, seriesID string) ([]*entity.MatchRecord, error) {
	rows, err := that.db.QueryContext(ctx,
		`SELECT record FROM matches WHERE series_id = ? ORDER BY game_number`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to list match records: %w", err)
	}
	defer rows.Close()

	var records []*entity.MatchRecord

	for rows.Next() {
		var recordJSON string
		if err = rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan match record: %w", err)
		}

		record, err := decodeMatch(recordJSON)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list match records: %w", err)
	}

	return records, nil
}

func decodeMatch(recordJSON string) (*entity.MatchRecord, error) {
	var record entity.MatchRecord
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match record: %w", err)
	}

	return &record, nil
}
