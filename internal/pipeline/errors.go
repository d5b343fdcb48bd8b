package pipeline

import (
	"errors"
	"fmt"
)

// Construction errors. These are fatal at startup, never at request time.
var (
	// ErrNoStages is returned when a pipeline is built with no stages.
	ErrNoStages = errors.New("pipeline must have at least one stage")

	// ErrDuplicateStage is returned when two stages share a name.
	ErrDuplicateStage = errors.New("duplicate stage name")

	// ErrUnsatisfiedInput is returned when a stage's required input cannot
	// be produced by any earlier stage or initial context key.
	ErrUnsatisfiedInput = errors.New("stage input not satisfiable")

	// ErrNilCapability is returned when a stage has no capability bound.
	ErrNilCapability = errors.New("stage capability is nil")
)

// MissingContextError reports a required input that was never produced.
// It aborts the containing pipeline run.
type MissingContextError struct {
	Stage string
	Key   string
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("stage %s: missing context variable %q", e.Stage, e.Key)
}

// CapabilityError reports a failure from an external capability call:
// timeout, malformed output, or an unavailable backing store.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// StageError is what the Runner raises when a stage fails. It wraps either
// a *MissingContextError or the capability failure.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
