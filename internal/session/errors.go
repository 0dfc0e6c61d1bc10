package session

import (
	"errors"
	"fmt"
)

// Common session errors.
var (
	// ErrSessionTerminal is returned by mutating calls after the session
	// reached Submitted or Terminated. Callers treat it as ignorable: the
	// one-shot submit guarantee makes late calls harmless.
	ErrSessionTerminal = errors.New("session is already in a terminal phase")

	// ErrNotInTesting is returned when a testing-phase operation arrives
	// while the session is still in verification.
	ErrNotInTesting = errors.New("session is not in the testing phase")

	// ErrVerificationIncomplete is returned when testing-phase entry is
	// attempted before all verification steps are complete.
	ErrVerificationIncomplete = errors.New("verification steps are not complete")

	// ErrUnknownQuestion is returned when an answer or code run targets a
	// question that does not exist in the test definition.
	ErrUnknownQuestion = errors.New("question not found in test definition")

	// ErrUnknownStep is returned for a step name outside the gate order.
	ErrUnknownStep = errors.New("unknown verification step")

	// ErrNotCodingQuestion is returned when a code run targets a question
	// that is not a coding question.
	ErrNotCodingQuestion = errors.New("question is not a coding question")
)

// PreconditionError reports a verification step accessed out of order.
// It names the earliest missing prerequisite so the UI can point at it.
type PreconditionError struct {
	Step    Step
	Missing Step
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("step %s requires %s to be completed first", e.Step, e.Missing)
}
