package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopCapability is a capability that records nothing and returns a fixed
// output. Construction tests only need a non-nil capability.
type nopCapability struct{ name string }

func (c nopCapability) Name() string { return c.name }
func (c nopCapability) Invoke(context.Context, Input) (string, error) {
	return "ok", nil
}

func stageWith(t *testing.T, name, instruction, outputKey string) Stage {
	t.Helper()
	tmpl, err := NewTemplate(instruction)
	require.NoError(t, err)
	return Stage{
		Name:        name,
		Instruction: tmpl,
		OutputKey:   outputKey,
		Capability:  nopCapability{name: name},
	}
}

func TestNewWellFormed(t *testing.T) {
	p, err := New(KindProfiling, PolicyAbsorb,
		[]string{"user_id", "user_input"},
		stageWith(t, "extract", "extract from {user_input}", "extracted_profile"),
		stageWith(t, "calculate", "compute macros for {extracted_profile}", "calculated_macros"),
		stageWith(t, "save", "save {calculated_macros} for {user_id}", ""),
	)
	require.NoError(t, err)

	assert.Equal(t, KindProfiling, p.Kind())
	assert.Equal(t, PolicyAbsorb, p.Policy())
	assert.Len(t, p.Stages(), 3)
	assert.True(t, p.Stages()[2].Terminal())
}

func TestNewUnsatisfiedInput(t *testing.T) {
	// Stage reads a key no earlier stage produces and no initial key covers.
	_, err := New(KindPlanning, PolicyFatal,
		[]string{"user_input"},
		stageWith(t, "planner", "plan using {recipes}", "meal_plan"),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsatisfiedInput)
	assert.Contains(t, err.Error(), "recipes")
}

func TestNewOrderMatters(t *testing.T) {
	// Consuming a later stage's output is unsatisfied: satisfiability only
	// considers stages at earlier positions.
	_, err := New(KindPlanning, PolicyFatal,
		[]string{"user_input"},
		stageWith(t, "first", "use {second_out}", "first_out"),
		stageWith(t, "second", "use {user_input}", "second_out"),
	)
	assert.ErrorIs(t, err, ErrUnsatisfiedInput)

	// Same stages in dependency order construct fine.
	_, err = New(KindPlanning, PolicyFatal,
		[]string{"user_input"},
		stageWith(t, "second", "use {user_input}", "second_out"),
		stageWith(t, "first", "use {second_out}", "first_out"),
	)
	assert.NoError(t, err)
}

func TestNewNoStages(t *testing.T) {
	_, err := New(KindProfiling, PolicyAbsorb, nil)
	assert.ErrorIs(t, err, ErrNoStages)
}

func TestNewDuplicateStageName(t *testing.T) {
	_, err := New(KindProfiling, PolicyAbsorb,
		[]string{"user_input"},
		stageWith(t, "dup", "a {user_input}", "x"),
		stageWith(t, "dup", "b {x}", ""),
	)
	assert.ErrorIs(t, err, ErrDuplicateStage)
}

func TestNewNilCapability(t *testing.T) {
	tmpl := MustTemplate("no vars")
	_, err := New(KindProfiling, PolicyAbsorb, nil, Stage{
		Name:        "broken",
		Instruction: tmpl,
	})
	assert.ErrorIs(t, err, ErrNilCapability)
}
