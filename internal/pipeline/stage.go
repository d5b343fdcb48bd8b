package pipeline

import (
	"time"
)

// Stage is a named unit of work. Its required inputs are exactly the
// placeholder variables of its instruction template; its output, if
// OutputKey is non-empty, is written back into the session context for
// later stages. A stage with an empty OutputKey is terminal: its result is
// only reported to the caller, never threaded forward.
type Stage struct {
	// Name is unique within a pipeline.
	Name string

	// Instruction is the stage's invocation template. Its placeholder set
	// defines the stage's required inputs.
	Instruction Template

	// OutputKey is the context variable this stage's result is stored
	// under. Empty marks a terminal stage.
	OutputKey string

	// Capability is the external invocation this stage performs.
	Capability Capability
}

// RequiredInputs returns the context variables this stage reads.
func (s Stage) RequiredInputs() []string {
	return s.Instruction.Vars()
}

// Terminal reports whether the stage writes no output key.
func (s Stage) Terminal() bool {
	return s.OutputKey == ""
}

// StageResult is the raw outcome of one executed stage, retained for
// reporting and debugging even for non-terminal stages.
type StageResult struct {
	Stage     string        `json:"stage"`
	OutputKey string        `json:"output_key,omitempty"`
	Output    string        `json:"output"`
	Duration  time.Duration `json:"duration"`
}
