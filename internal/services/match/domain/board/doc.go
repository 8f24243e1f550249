// Package board models the backgammon board and its movement rules.
//
// The board is a value type: rule functions return modified copies and never
// mutate the receiver, so callers can probe candidate moves freely. The match
// orchestrator owns the only authoritative board reference.
package board
