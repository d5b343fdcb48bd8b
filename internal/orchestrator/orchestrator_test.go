package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nourishlabs/mealpland/internal/config"
	"github.com/nourishlabs/mealpland/internal/pipeline"
	"github.com/nourishlabs/mealpland/internal/planstore"
	"github.com/nourishlabs/mealpland/internal/session"
)

type scriptedGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	errOn     string
	prompts   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.errOn != "" && strings.Contains(prompt, g.errOn) {
		return "", errors.New("model unavailable")
	}
	for marker, response := range g.responses {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}
	return "", fmt.Errorf("no scripted response for prompt: %.60s", prompt)
}

type fakeProfiles struct {
	mu       sync.Mutex
	saved    int
	recalled string
}

func (f *fakeProfiles) Save(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved++
	return "id", nil
}

func (f *fakeProfiles) Recall(_ context.Context, _, _ string) (string, error) {
	return f.recalled, nil
}

type fakePlans struct {
	mu      sync.Mutex
	calls   int
	recipes []planstore.Recipe
	err     error
}

func (f *fakePlans) SavePlan(_ context.Context, _, _ string, recipes []planstore.Recipe) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls++
	f.recipes = recipes
	return "plan-id", nil
}

const fiveMealsJSON = `[
	{"name": "A", "description": "a", "ingredients": "x", "nutrition": "1", "time": "10m"},
	{"name": "B", "description": "b", "ingredients": "x", "nutrition": "1", "time": "10m"},
	{"name": "C", "description": "c", "ingredients": "x", "nutrition": "1", "time": "10m"},
	{"name": "D", "description": "d", "ingredients": "x", "nutrition": "1", "time": "10m"},
	{"name": "E", "description": "e", "ingredients": "x", "nutrition": "1", "time": "10m"}
]`

func defaultResponses() map[string]string {
	return map[string]string{
		"profiling assistant": `{"diet": "vegetarian"}`,
		"dietitian":           "2000 kcal",
		"recipe researcher":   "candidate recipes",
		"meal planner":        fiveMealsJSON,
	}
}

func newTestOrchestrator(t *testing.T, gen *scriptedGenerator, profiles *fakeProfiles, plans *fakePlans) *Orchestrator {
	t.Helper()
	o, err := New(Deps{
		Generator:       gen,
		Profiles:        profiles,
		Plans:           plans,
		Sessions:        session.NewStore(),
		ProfileTriggers: config.Default().Detection.ProfileTriggers,
	})
	require.NoError(t, err)
	return o
}

func TestDetectPipelines(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedGenerator{}, &fakeProfiles{}, &fakePlans{})

	tests := []struct {
		name      string
		input     string
		profiling bool
	}{
		{"plain meal request", "I want healthy lunch recipes", false},
		{"full bio", "I'm a 30-year-old male, 75kg, vegetarian, diabetic, want dinner", true},
		{"weight only", "my weight is a problem lately, need dinner ideas", true},
		{"case insensitive", "I AM VEGAN", true},
		{"dislike", "I don't like mushrooms", true},
		{"neutral", "quick pasta dishes for tonight", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kinds := o.DetectPipelines(tt.input)
			assert.Equal(t, pipeline.KindPlanning, kinds[len(kinds)-1], "planning always selected")
			if tt.profiling {
				assert.Equal(t, []pipeline.Kind{pipeline.KindProfiling, pipeline.KindPlanning}, kinds)
			} else {
				assert.Equal(t, []pipeline.Kind{pipeline.KindPlanning}, kinds)
			}
		})
	}
}

func TestRunnerMemoization(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedGenerator{}, &fakeProfiles{}, &fakePlans{})

	r1, err := o.Runner(pipeline.KindPlanning)
	require.NoError(t, err)
	r2, err := o.Runner(pipeline.KindPlanning)
	require.NoError(t, err)
	assert.Same(t, r1, r2, "same kind must reuse the same runner")

	r3, err := o.Runner(pipeline.KindProfiling)
	require.NoError(t, err)
	assert.NotSame(t, r1, r3)

	_, err = o.Runner(pipeline.Kind("unknown"))
	assert.Error(t, err)
}

func TestExecuteUnifiedWorkflow_WithProfiling(t *testing.T) {
	gen := &scriptedGenerator{responses: defaultResponses()}
	profiles := &fakeProfiles{}
	plans := &fakePlans{}
	o := newTestOrchestrator(t, gen, profiles, plans)

	result, err := o.ExecuteUnifiedWorkflow(context.Background(),
		"alice", "I'm vegetarian and 70kg, plan my week", 5)
	require.NoError(t, err)

	assert.True(t, result.ProfileUpdated)
	assert.Contains(t, result.ProfileResponse, "Profile updated")
	assert.Equal(t, 1, profiles.saved)
	assert.Equal(t, 1, plans.calls, "save_plan called exactly once")
	assert.GreaterOrEqual(t, len(plans.recipes), 5)
	assert.Contains(t, result.MealOptions, `"name"`)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 5, result.NumMealsRequested)
}

func TestExecuteUnifiedWorkflow_NoProfilingIntent(t *testing.T) {
	gen := &scriptedGenerator{responses: defaultResponses()}
	profiles := &fakeProfiles{}
	o := newTestOrchestrator(t, gen, profiles, &fakePlans{})

	result, err := o.ExecuteUnifiedWorkflow(context.Background(),
		"bob", "quick pasta dishes for tonight", 5)
	require.NoError(t, err)

	assert.False(t, result.ProfileUpdated)
	assert.Empty(t, result.ProfileResponse)
	assert.Equal(t, 0, profiles.saved)
	assert.Equal(t, "success", result.Status)
}

func TestExecuteUnifiedWorkflow_ProfilingFailureAbsorbed(t *testing.T) {
	gen := &scriptedGenerator{responses: defaultResponses(), errOn: "dietitian"}
	profiles := &fakeProfiles{}
	plans := &fakePlans{}
	o := newTestOrchestrator(t, gen, profiles, plans)

	result, err := o.ExecuteUnifiedWorkflow(context.Background(),
		"alice", "I'm vegetarian, plan my dinners", 5)
	require.NoError(t, err, "profiling failure must not fail the unified flow")

	assert.False(t, result.ProfileUpdated)
	assert.Equal(t, 0, profiles.saved)
	assert.Equal(t, 1, plans.calls)
	assert.Equal(t, "success", result.Status)
}

func TestExecuteUnifiedWorkflow_PlanningFailureFatal(t *testing.T) {
	gen := &scriptedGenerator{responses: defaultResponses(), errOn: "meal planner"}
	plans := &fakePlans{}
	o := newTestOrchestrator(t, gen, &fakeProfiles{}, plans)

	_, err := o.ExecuteUnifiedWorkflow(context.Background(),
		"bob", "dinner ideas", 5)
	require.Error(t, err)

	var stageErr *pipeline.StageError
	assert.ErrorAs(t, err, &stageErr)
	assert.Equal(t, 0, plans.calls, "save_plan never called on planning failure")
}

func TestExecuteUnifiedWorkflow_EnforcesMinMeals(t *testing.T) {
	gen := &scriptedGenerator{responses: defaultResponses()}
	o := newTestOrchestrator(t, gen, &fakeProfiles{}, &fakePlans{})

	result, err := o.ExecuteUnifiedWorkflow(context.Background(), "bob", "dinner", 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultMinMeals, result.NumMealsRequested)

	// The enhanced input carries the instruction block.
	var sawInstruction bool
	for _, prompt := range gen.prompts {
		if strings.Contains(prompt, "at least 5 meal options with ingredients, nutrition information, and preparation instructions") {
			sawInstruction = true
		}
	}
	assert.True(t, sawInstruction)
}

func TestExecuteUnifiedWorkflow_Validation(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedGenerator{}, &fakeProfiles{}, &fakePlans{})
	ctx := context.Background()

	_, err := o.ExecuteUnifiedWorkflow(ctx, "", "input", 5)
	assert.ErrorIs(t, err, ErrEmptyUserID)

	_, err = o.ExecuteUnifiedWorkflow(ctx, "alice", "  ", 5)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestPlanningSessionID_StablePerDay(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedGenerator{}, &fakeProfiles{}, &fakePlans{})

	fixed := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return fixed }
	id1 := o.planningSessionID("alice")

	o.now = func() time.Time { return fixed.Add(10 * time.Hour) }
	id2 := o.planningSessionID("alice")

	assert.Equal(t, "alice_meal_20260829", id1)
	assert.Equal(t, id1, id2, "same user and day share a session")

	o.now = func() time.Time { return fixed.AddDate(0, 0, 1) }
	assert.Equal(t, "alice_meal_20260830", o.planningSessionID("alice"))
	assert.NotEqual(t, id1, o.planningSessionID("bob"))
}

func TestExecuteCompleteWorkflow(t *testing.T) {
	gen := &scriptedGenerator{responses: defaultResponses()}
	profiles := &fakeProfiles{}
	plans := &fakePlans{}
	o := newTestOrchestrator(t, gen, profiles, plans)

	result, err := o.ExecuteCompleteWorkflow(context.Background(),
		"alice", "I'm 30, vegetarian, 70kg", "plan my dinners", 6)
	require.NoError(t, err)

	assert.True(t, result.ProfileUpdated)
	assert.Equal(t, 1, profiles.saved)
	assert.Equal(t, 1, plans.calls)
	assert.Equal(t, 6, result.NumMealsRequested)
}

func TestExecuteCompleteWorkflow_ProfilingFatal(t *testing.T) {
	gen := &scriptedGenerator{responses: defaultResponses(), errOn: "profiling assistant"}
	plans := &fakePlans{}
	o := newTestOrchestrator(t, gen, &fakeProfiles{}, plans)

	_, err := o.ExecuteCompleteWorkflow(context.Background(),
		"alice", "I'm vegetarian", "dinners", 5)
	require.Error(t, err, "complete workflow does not absorb profiling failures")
	assert.Equal(t, 0, plans.calls)
}
