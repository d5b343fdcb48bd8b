package pipeline

import (
	"fmt"
)

// Kind identifies a pipeline's purpose.
type Kind string

const (
	// KindProfiling extracts and persists a user's nutrition profile.
	KindProfiling Kind = "profiling"

	// KindPlanning generates and persists meal recommendations.
	KindPlanning Kind = "planning"
)

// Policy is the failure policy the orchestrator consults when a pipeline
// run fails. It is data on the pipeline, not scattered recovery logic.
type Policy string

const (
	// PolicyAbsorb marks a pipeline whose failure is recorded but does not
	// fail the overall orchestrator call.
	PolicyAbsorb Policy = "absorb"

	// PolicyFatal marks a pipeline whose failure fails the overall call.
	PolicyFatal Policy = "fatal"
)

// Pipeline is an ordered, immutable sequence of stages with a declared set
// of initial context keys.
type Pipeline struct {
	kind        Kind
	policy      Policy
	initialKeys []string
	stages      []Stage
}

// New builds a pipeline and performs the static well-formedness check: for
// every stage at position i, all required inputs must be satisfiable from
// the declared initial keys or the output keys of stages before i.
// Execution order is fixed here; there is no dynamic reordering or
// conditional skipping within a pipeline.
func New(kind Kind, policy Policy, initialKeys []string, stages ...Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline %s: %w", kind, ErrNoStages)
	}

	available := make(map[string]bool, len(initialKeys))
	for _, k := range initialKeys {
		available[k] = true
	}

	names := make(map[string]bool, len(stages))
	for i, st := range stages {
		if st.Capability == nil {
			return nil, fmt.Errorf("pipeline %s: stage %s: %w", kind, st.Name, ErrNilCapability)
		}
		if names[st.Name] {
			return nil, fmt.Errorf("pipeline %s: %w: %s", kind, ErrDuplicateStage, st.Name)
		}
		names[st.Name] = true

		for _, input := range st.RequiredInputs() {
			if !available[input] {
				return nil, fmt.Errorf("pipeline %s: stage %s (position %d): %w: %q",
					kind, st.Name, i, ErrUnsatisfiedInput, input)
			}
		}
		if st.OutputKey != "" {
			available[st.OutputKey] = true
		}
	}

	return &Pipeline{
		kind:        kind,
		policy:      policy,
		initialKeys: append([]string(nil), initialKeys...),
		stages:      append([]Stage(nil), stages...),
	}, nil
}

// Kind returns the pipeline's purpose identifier.
func (p *Pipeline) Kind() Kind { return p.kind }

// Policy returns the pipeline's failure policy.
func (p *Pipeline) Policy() Policy { return p.policy }

// InitialKeys returns the declared initial context keys.
func (p *Pipeline) InitialKeys() []string {
	return append([]string(nil), p.initialKeys...)
}

// Stages returns the ordered stage list.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}
