// Package worker runs queued AI turns in the background.
package worker

import (
	"context"
	"log"
)

// TurnPlayer executes one AI turn for a match.
type TurnPlayer interface {
	PlayAITurn(ctx context.Context, matchID string) error
}

// Worker drains a bounded queue of match ids and plays the AI turn for each.
// Triggers on a full queue are dropped rather than blocking the command path;
// a dropped trigger is recovered the next time the match is read or acted on.
type Worker struct {
	player TurnPlayer
	queue  chan string
}

// New creates a worker with the given queue capacity.
func New(player TurnPlayer, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Worker{
		player: player,
		queue:  make(chan string, queueSize),
	}
}

// Trigger enqueues an AI turn for the match without blocking.
func (w *Worker) Trigger(matchID string) {
	select {
	case w.queue <- matchID:
	default:
		log.Printf("ai turn queue full, dropping trigger match_id=%s", matchID)
	}
}

// Run processes queued AI turns until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case matchID := <-w.queue:
			if err := w.player.PlayAITurn(ctx, matchID); err != nil {
				log.Printf("ai turn failed match_id=%s error=%v", matchID, err)
			}
		}
	}
}
