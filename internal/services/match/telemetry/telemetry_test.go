package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/gammonhq/gammon.space/internal/services/match/storage/memory"
)

func TestEmitRecordsEvent(t *testing.T) {
	store := memory.New()
	fixed := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	emitter := NewEmitter(store).WithClock(func() time.Time { return fixed })

	emitter.Emit(context.Background(), "dice.locked", SeverityInfo, "m-1", "user-1",
		map[string]any{"die_first": 3})

	events := store.TelemetryEvents()
	if len(events) != 1 {
		t.Fatalf("TelemetryEvents() len = %d, want 1", len(events))
	}
	evt := events[0]
	if evt.EventName != "dice.locked" {
		t.Errorf("event name = %q, want %q", evt.EventName, "dice.locked")
	}
	if evt.Severity != SeverityInfo {
		t.Errorf("severity = %q, want %q", evt.Severity, SeverityInfo)
	}
	if !evt.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", evt.Timestamp, fixed)
	}
	if evt.Attributes["die_first"] != 3 {
		t.Errorf("attributes = %v, want die_first=3", evt.Attributes)
	}
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *Emitter
	emitter.Emit(context.Background(), "noop", SeverityInfo, "", "", nil)
}
