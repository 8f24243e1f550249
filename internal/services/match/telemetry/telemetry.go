// Package telemetry records operational match events for later audits.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/gammonhq/gammon.space/internal/services/match/storage"
)

// Severity levels recorded with each event.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Emitter persists telemetry events. A nil Emitter discards everything, so
// callers never need to guard emission sites.
type Emitter struct {
	store storage.TelemetryStore
	now   func() time.Time
}

// NewEmitter creates an emitter backed by the given store.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, now: time.Now}
}

// WithClock overrides the emitter's time source. Used by tests.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	e.now = now
	return e
}

// Emit records one event. Persistence failures are logged and swallowed;
// telemetry never fails a match command.
func (e *Emitter) Emit(ctx context.Context, name, severity, matchID, actor string, attributes map[string]any) {
	if e == nil || e.store == nil {
		return
	}
	evt := storage.TelemetryEvent{
		Timestamp:  e.now().UTC(),
		EventName:  name,
		Severity:   severity,
		MatchID:    matchID,
		Actor:      actor,
		Attributes: attributes,
	}
	if err := e.store.AppendTelemetryEvent(ctx, evt); err != nil {
		log.Printf("telemetry append failed event=%s match_id=%s error=%v", name, matchID, err)
	}
}
