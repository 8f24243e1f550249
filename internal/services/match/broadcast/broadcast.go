// Package broadcast defines the outbound event fanout boundary.
//
// The orchestrator publishes state transitions here after every committed
// write. Delivery is best effort: a slow or failing transport never blocks or
// rolls back a match command.
package broadcast

import (
	"context"
	"log"
	"sync"
)

// EventType names the category of a published match event.
type EventType string

const (
	// EventStateUpdate carries a full refreshed match snapshot.
	EventStateUpdate EventType = "state_update"
	// EventMove announces an applied move sequence.
	EventMove EventType = "move"
	// EventTimerUpdate announces refreshed clock values.
	EventTimerUpdate EventType = "timer_update"
	// EventMatchEnd announces a terminal transition.
	EventMatchEnd EventType = "match_end"
)

// Broadcaster delivers match events to connected spectators and players.
type Broadcaster interface {
	// Publish delivers one event for a match. Implementations must not
	// block on slow consumers; errors are reported for logging only.
	Publish(ctx context.Context, matchID string, event EventType, payload any) error
}

// LogBroadcaster writes events to the process log. It backs local runs and
// deployments without a realtime transport.
type LogBroadcaster struct{}

// Publish logs the event and always succeeds.
func (LogBroadcaster) Publish(ctx context.Context, matchID string, event EventType, payload any) error {
	log.Printf("broadcast match_id=%s event=%s", matchID, event)
	return nil
}

// Recorder captures published events for test assertions. Safe for use from
// worker goroutines.
type Recorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// RecordedEvent is one captured Publish call.
type RecordedEvent struct {
	MatchID string
	Event   EventType
	Payload any
}

// Publish records the event and always succeeds.
func (r *Recorder) Publish(ctx context.Context, matchID string, event EventType, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{MatchID: matchID, Event: event, Payload: payload})
	return nil
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]RecordedEvent, len(r.events))
	copy(events, r.events)
	return events
}
