// Package sqlite implements the match storage interfaces on SQLite.
//
// The aggregate is persisted as a JSON document beside indexed lifecycle
// columns; the version column backs the optimistic-concurrency contract.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gammonhq/gammon.space/internal/platform/storage/sqlitemigrate"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/board"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/match"
	"github.com/gammonhq/gammon.space/internal/services/match/storage"
	"github.com/gammonhq/gammon.space/internal/services/match/storage/sqlite/migrations"
)

// Store provides a SQLite-backed implementation of storage.Store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite match store at the provided path and applies embedded
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
//
// Close is intentionally nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// CreateMatch stores a new match at version 1.
func (s *Store) CreateMatch(ctx context.Context, m match.State) (storage.MatchRecord, error) {
	stateJSON, err := json.Marshal(m)
	if err != nil {
		return storage.MatchRecord{}, fmt.Errorf("marshal match state: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO matches (id, status, phase, end_reason, version, state_json, created_at, updated_at)
VALUES (?, ?, ?, ?, 1, ?, ?, ?)`,
		m.ID,
		string(m.Status),
		string(m.Phase),
		string(m.EndReason),
		string(stateJSON),
		toMillis(m.CreatedAt),
		toMillis(m.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return storage.MatchRecord{}, storage.ErrVersionConflict
		}
		return storage.MatchRecord{}, fmt.Errorf("insert match: %w", err)
	}
	return storage.MatchRecord{Match: m, Version: 1}, nil
}

// GetMatch retrieves a match by id.
func (s *Store) GetMatch(ctx context.Context, id string) (storage.MatchRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT state_json, version FROM matches WHERE id = ?`, id)

	var stateJSON string
	var version int64
	if err := row.Scan(&stateJSON, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MatchRecord{}, storage.ErrNotFound
		}
		return storage.MatchRecord{}, fmt.Errorf("select match: %w", err)
	}

	var state match.State
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return storage.MatchRecord{}, fmt.Errorf("unmarshal match state: %w", err)
	}
	return storage.MatchRecord{Match: state, Version: version}, nil
}

// UpdateMatch stores a new aggregate state under optimistic concurrency.
func (s *Store) UpdateMatch(ctx context.Context, m match.State, expectedVersion int64) (storage.MatchRecord, error) {
	stateJSON, err := json.Marshal(m)
	if err != nil {
		return storage.MatchRecord{}, fmt.Errorf("marshal match state: %w", err)
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE matches
SET status = ?, phase = ?, end_reason = ?, version = version + 1, state_json = ?, updated_at = ?
WHERE id = ? AND version = ?`,
		string(m.Status),
		string(m.Phase),
		string(m.EndReason),
		string(stateJSON),
		toMillis(m.UpdatedAt),
		m.ID,
		expectedVersion,
	)
	if err != nil {
		return storage.MatchRecord{}, fmt.Errorf("update match: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storage.MatchRecord{}, fmt.Errorf("update match rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing record from a lost write.
		var exists int
		row := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM matches WHERE id = ?`, m.ID)
		if scanErr := row.Scan(&exists); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return storage.MatchRecord{}, storage.ErrNotFound
			}
			return storage.MatchRecord{}, fmt.Errorf("check match existence: %w", scanErr)
		}
		return storage.MatchRecord{}, storage.ErrVersionConflict
	}
	return storage.MatchRecord{Match: m, Version: expectedVersion + 1}, nil
}

// AppendTurn appends a played sequence to the match history.
func (s *Store) AppendTurn(ctx context.Context, turn storage.TurnRecord) error {
	movesJSON, err := json.Marshal(turn.Moves)
	if err != nil {
		return fmt.Errorf("marshal turn moves: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO match_turns (match_id, turn, color, die_first, die_second, moves_json, played_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.MatchID,
		turn.Turn,
		turn.Color.String(),
		turn.Dice.First,
		turn.Dice.Second,
		string(movesJSON),
		toMillis(turn.PlayedAt),
	)
	if err != nil {
		return fmt.Errorf("insert match turn: %w", err)
	}
	return nil
}

// ListTurns returns a match's turns ordered by turn number ascending.
func (s *Store) ListTurns(ctx context.Context, matchID string) ([]storage.TurnRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT turn, color, die_first, die_second, moves_json, played_at
FROM match_turns
WHERE match_id = ?
ORDER BY turn ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("select match turns: %w", err)
	}
	defer rows.Close()

	var turns []storage.TurnRecord
	for rows.Next() {
		var (
			record    storage.TurnRecord
			colorName string
			movesJSON string
			playedAt  int64
		)
		if err := rows.Scan(&record.Turn, &colorName, &record.Dice.First, &record.Dice.Second, &movesJSON, &playedAt); err != nil {
			return nil, fmt.Errorf("scan match turn: %w", err)
		}
		color, err := board.ParseColor(colorName)
		if err != nil {
			return nil, fmt.Errorf("parse turn color: %w", err)
		}
		record.MatchID = matchID
		record.Color = color
		record.PlayedAt = time.UnixMilli(playedAt).UTC()
		if err := json.Unmarshal([]byte(movesJSON), &record.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal turn moves: %w", err)
		}
		turns = append(turns, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match turns: %w", err)
	}
	return turns, nil
}

// AppendTelemetryEvent records an operational telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	attributesJSON := []byte("{}")
	if len(evt.Attributes) > 0 {
		encoded, err := json.Marshal(evt.Attributes)
		if err != nil {
			return fmt.Errorf("marshal telemetry attributes: %w", err)
		}
		attributesJSON = encoded
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (ts, event_name, severity, match_id, actor, attributes_json)
VALUES (?, ?, ?, ?, ?, ?)`,
		toMillis(evt.Timestamp),
		evt.EventName,
		evt.Severity,
		evt.MatchID,
		evt.Actor,
		string(attributesJSON),
	)
	if err != nil {
		return fmt.Errorf("insert telemetry event: %w", err)
	}
	return nil
}

// GetMatchStatistics returns aggregate counters.
func (s *Store) GetMatchStatistics(ctx context.Context) (storage.MatchStatistics, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
    COUNT(CASE WHEN status = ? THEN 1 END),
    COUNT(CASE WHEN status = ? THEN 1 END),
    COUNT(CASE WHEN end_reason = ? THEN 1 END)
FROM matches`,
		string(match.StatusActive),
		string(match.StatusCompleted),
		string(match.EndReasonTimeout),
	)

	var stats storage.MatchStatistics
	if err := row.Scan(&stats.ActiveCount, &stats.CompletedCount, &stats.TimeoutCount); err != nil {
		return storage.MatchStatistics{}, fmt.Errorf("select match statistics: %w", err)
	}
	return stats, nil
}
