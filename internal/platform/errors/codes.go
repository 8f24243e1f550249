// Package errors provides structured error handling for the match domain.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Match lifecycle errors
	CodeMatchIDEmpty      Code = "MATCH_ID_EMPTY"
	CodeMatchCompleted    Code = "MATCH_COMPLETED"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeNotYourTurn       Code = "NOT_YOUR_TURN"
	CodeInvalidColor      Code = "INVALID_COLOR"
	CodeInvalidDifficulty Code = "INVALID_DIFFICULTY"
	CodeInvalidEndReason  Code = "INVALID_END_REASON"

	// Board/move errors
	CodeIllegalMove   Code = "ILLEGAL_MOVE"
	CodeEmptySequence Code = "EMPTY_SEQUENCE"

	// Dice errors
	CodeDiceInvalidValue Code = "DICE_INVALID_VALUE"
	CodeDiceNotLocked    Code = "DICE_NOT_LOCKED"

	// Storage errors
	CodeNotFound   Code = "NOT_FOUND"
	CodeStaleWrite Code = "STALE_WRITE"

	// Random/seed errors
	CodeSeedUnavailable Code = "SEED_UNAVAILABLE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeMatchIDEmpty,
		CodeInvalidColor,
		CodeInvalidDifficulty,
		CodeInvalidEndReason,
		CodeEmptySequence,
		CodeDiceInvalidValue:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeMatchCompleted,
		CodeInvalidState,
		CodeNotYourTurn,
		CodeIllegalMove,
		CodeDiceNotLocked:
		return codes.FailedPrecondition

	// Aborted - optimistic concurrency conflict, caller should retry
	case CodeStaleWrite:
		return codes.Aborted

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
