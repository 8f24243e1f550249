// Package memory provides an in-memory Store used by tests and local runs.
// It mirrors the sqlite store's optimistic-concurrency behavior exactly.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gammonhq/gammon.space/internal/services/match/domain/match"
	"github.com/gammonhq/gammon.space/internal/services/match/storage"
)

// Store is a mutex-guarded in-memory implementation of storage.Store.
type Store struct {
	mu        sync.Mutex
	matches   map[string]storage.MatchRecord
	turns     map[string][]storage.TurnRecord
	telemetry []storage.TelemetryEvent
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		matches: make(map[string]storage.MatchRecord),
		turns:   make(map[string][]storage.TurnRecord),
	}
}

// CreateMatch stores a new match at version 1.
func (s *Store) CreateMatch(ctx context.Context, m match.State) (storage.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.matches[m.ID]; exists {
		return storage.MatchRecord{}, storage.ErrVersionConflict
	}
	record := storage.MatchRecord{Match: m, Version: 1}
	s.matches[m.ID] = record
	return record, nil
}

// GetMatch retrieves a match by id.
func (s *Store) GetMatch(ctx context.Context, id string) (storage.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.matches[id]
	if !ok {
		return storage.MatchRecord{}, storage.ErrNotFound
	}
	return record, nil
}

// UpdateMatch stores a new state under optimistic concurrency.
func (s *Store) UpdateMatch(ctx context.Context, m match.State, expectedVersion int64) (storage.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.matches[m.ID]
	if !ok {
		return storage.MatchRecord{}, storage.ErrNotFound
	}
	if current.Version != expectedVersion {
		return storage.MatchRecord{}, storage.ErrVersionConflict
	}
	record := storage.MatchRecord{Match: m, Version: expectedVersion + 1}
	s.matches[m.ID] = record
	return record, nil
}

// AppendTurn appends a played sequence to the match history.
func (s *Store) AppendTurn(ctx context.Context, turn storage.TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[turn.MatchID] = append(s.turns[turn.MatchID], turn)
	return nil
}

// ListTurns returns a match's turns ordered by turn number ascending.
func (s *Store) ListTurns(ctx context.Context, matchID string) ([]storage.TurnRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := make([]storage.TurnRecord, len(s.turns[matchID]))
	copy(turns, s.turns[matchID])
	sort.Slice(turns, func(i, j int) bool { return turns[i].Turn < turns[j].Turn })
	return turns, nil
}

// AppendTelemetryEvent records an operational telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.telemetry = append(s.telemetry, evt)
	return nil
}

// TelemetryEvents returns a copy of recorded telemetry for test assertions.
func (s *Store) TelemetryEvents() []storage.TelemetryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]storage.TelemetryEvent, len(s.telemetry))
	copy(events, s.telemetry)
	return events
}

// GetMatchStatistics returns aggregate counters.
func (s *Store) GetMatchStatistics(ctx context.Context) (storage.MatchStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats storage.MatchStatistics
	for _, record := range s.matches {
		switch record.Match.Status {
		case match.StatusActive:
			stats.ActiveCount++
		case match.StatusCompleted:
			stats.CompletedCount++
			if record.Match.EndReason == match.EndReasonTimeout {
				stats.TimeoutCount++
			}
		}
	}
	return stats, nil
}

// Close releases nothing; it exists to satisfy storage.Store.
func (s *Store) Close() error {
	return nil
}
