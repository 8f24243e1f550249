package worker

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakePlayer struct {
	mu     sync.Mutex
	played []string
	done   chan struct{}
}

func (f *fakePlayer) PlayAITurn(ctx context.Context, matchID string) error {
	f.mu.Lock()
	f.played = append(f.played, matchID)
	f.mu.Unlock()
	select {
	case f.done <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakePlayer) playedMatches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

func TestWorkerPlaysQueuedTurns(t *testing.T) {
	player := &fakePlayer{done: make(chan struct{}, 4)}
	w := New(player, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Trigger("m-1")
	w.Trigger("m-2")

	for i := 0; i < 2; i++ {
		select {
		case <-player.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for ai turns")
		}
	}

	played := player.playedMatches()
	if len(played) != 2 || played[0] != "m-1" || played[1] != "m-2" {
		t.Errorf("played = %v, want [m-1 m-2]", played)
	}
}

func TestTriggerDropsWhenFull(t *testing.T) {
	player := &fakePlayer{done: make(chan struct{}, 1)}
	w := New(player, 1)

	// No Run loop: the queue fills and further triggers must not block.
	w.Trigger("m-1")
	finished := make(chan struct{})
	go func() {
		w.Trigger("m-2")
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked on a full queue")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	player := &fakePlayer{done: make(chan struct{}, 1)}
	w := New(player, 1)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
