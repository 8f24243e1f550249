// Package storage declares the persistence boundary for the match service.
//
// Stores provide optimistic-concurrency semantics: every match record carries
// a version, and conditional updates fail with ErrVersionConflict when a
// concurrent writer got there first. The orchestrator serializes per-match
// state transitions on top of this contract.
package storage

import (
	"context"
	"time"

	apperrors "github.com/gammonhq/gammon.space/internal/platform/errors"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/board"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/dice"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/match"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrVersionConflict indicates a conditional write lost to a concurrent
// writer. Callers re-read and retry with fresh state.
var ErrVersionConflict = apperrors.New(apperrors.CodeStaleWrite, "match version conflict")

// MatchRecord wraps the match aggregate with its persistence version.
type MatchRecord struct {
	Match   match.State
	Version int64
}

// TurnRecord captures one applied move sequence for the match history.
type TurnRecord struct {
	MatchID  string
	Turn     int
	Color    board.Color
	Dice     dice.Pair
	Moves    board.Sequence
	PlayedAt time.Time
}

// MatchStore owns the authoritative match aggregate records.
type MatchStore interface {
	// CreateMatch stores a new match at version 1.
	CreateMatch(ctx context.Context, m match.State) (MatchRecord, error)
	// GetMatch retrieves a match by id. Returns ErrNotFound when missing.
	GetMatch(ctx context.Context, id string) (MatchRecord, error)
	// UpdateMatch stores a new aggregate state when the persisted version
	// still equals expectedVersion, bumping the version by one. Returns
	// ErrVersionConflict otherwise.
	UpdateMatch(ctx context.Context, m match.State, expectedVersion int64) (MatchRecord, error)
}

// TurnStore owns the append-only per-match move history used by clients to
// reconcile after reconnect.
type TurnStore interface {
	// AppendTurn appends a played sequence. Turn numbers are assigned by the
	// caller and are unique per match.
	AppendTurn(ctx context.Context, turn TurnRecord) error
	// ListTurns returns a match's turns ordered by turn number ascending.
	ListTurns(ctx context.Context, matchID string) ([]TurnRecord, error)
}

// TelemetryEvent captures operational observations emitted during command
// execution.
type TelemetryEvent struct {
	Timestamp  time.Time
	EventName  string
	Severity   string
	MatchID    string
	Actor      string
	Attributes map[string]any
}

// TelemetryStore persists operational telemetry records for audits.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
}

// MatchStatistics contains aggregate counters used by dashboards.
type MatchStatistics struct {
	ActiveCount    int64
	CompletedCount int64
	TimeoutCount   int64
}

// StatisticsStore centralizes aggregate count queries.
type StatisticsStore interface {
	GetMatchStatistics(ctx context.Context) (MatchStatistics, error)
}

// Store is the composite interface for all match persistence concerns.
type Store interface {
	MatchStore
	TurnStore
	TelemetryStore
	StatisticsStore
	Close() error
}
