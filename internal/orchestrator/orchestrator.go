// Package orchestrator coordinates the profiling and planning pipelines
// behind a single entry point. It detects intent from raw user input,
// lazily builds one runner per pipeline kind, and composes runs into a
// workflow result. Profiling failures in the unified flow degrade to a
// planning-only run; planning failures are always fatal.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nourishlabs/mealpland/internal/pipeline"
	"github.com/nourishlabs/mealpland/internal/session"
	"github.com/nourishlabs/mealpland/internal/workflows"
)

// DefaultMinMeals is the floor for requested meal options.
const DefaultMinMeals = 5

// Sentinel errors for orchestration.
var (
	ErrEmptyUserID = errors.New("user ID cannot be empty")
	ErrEmptyInput  = errors.New("user input cannot be empty")
)

// Deps are the shared services the orchestrator composes. All fields
// except NutritionLookup are required.
type Deps struct {
	Generator pipeline.Generator
	Profiles  workflows.ProfileStore
	Nutrition workflows.NutritionLookup
	Plans     workflows.PlanSaver
	Sessions  *session.Store

	// ProfileTriggers is the lowercase keyword table for profiling
	// intent. Empty falls back to nothing matching; callers normally
	// pass config.DetectionConfig.ProfileTriggers.
	ProfileTriggers []string

	// MinMeals floors the requested option count. Zero means
	// DefaultMinMeals.
	MinMeals int

	Logger *zap.Logger
}

// Result is the outcome of a workflow run.
type Result struct {
	UserID            string `json:"user_id"`
	ProfileUpdated    bool   `json:"profile_updated"`
	ProfileResponse   string `json:"profile_response,omitempty"`
	MealOptions       string `json:"meal_options"`
	NumMealsRequested int    `json:"num_meals_requested"`
	Status            string `json:"status"`
}

// Orchestrator owns lazily-created, memoized pipeline runners.
type Orchestrator struct {
	deps     Deps
	logger   *zap.Logger
	minMeals int

	mu      sync.Mutex
	runners map[pipeline.Kind]*pipeline.Runner

	now func() time.Time
}

// New validates dependencies and creates an Orchestrator. Pipelines are
// not built until first use.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if deps.Plans == nil {
		return nil, fmt.Errorf("plan saver is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	minMeals := deps.MinMeals
	if minMeals <= 0 {
		minMeals = DefaultMinMeals
	}
	return &Orchestrator{
		deps:     deps,
		logger:   logger,
		minMeals: minMeals,
		runners:  make(map[pipeline.Kind]*pipeline.Runner),
		now:      time.Now,
	}, nil
}

// Runner returns the memoized runner for a pipeline kind, building the
// pipeline on first use. The same instance is returned on every call.
func (o *Orchestrator) Runner(kind pipeline.Kind) (*pipeline.Runner, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if r, ok := o.runners[kind]; ok {
		return r, nil
	}

	var (
		p   *pipeline.Pipeline
		err error
	)
	switch kind {
	case pipeline.KindProfiling:
		p, err = workflows.NewProfiling(o.deps.Generator, o.deps.Profiles)
	case pipeline.KindPlanning:
		p, err = workflows.NewPlanning(o.deps.Generator, o.deps.Profiles, o.deps.Nutrition, o.deps.Plans, o.logger)
	default:
		return nil, fmt.Errorf("unknown pipeline kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("building %s pipeline: %w", kind, err)
	}

	r := pipeline.NewRunner(p, o.deps.Sessions, o.logger)
	o.runners[kind] = r
	return r, nil
}

// DetectPipelines selects pipelines from raw input by a lowercase
// keyword scan. Planning is always selected; profiling only when a
// trigger term appears.
func (o *Orchestrator) DetectPipelines(input string) []pipeline.Kind {
	lowered := strings.ToLower(input)
	for _, trigger := range o.deps.ProfileTriggers {
		if strings.Contains(lowered, trigger) {
			return []pipeline.Kind{pipeline.KindProfiling, pipeline.KindPlanning}
		}
	}
	return []pipeline.Kind{pipeline.KindPlanning}
}

// profileSessionID is stable per user: repeat profiling runs accumulate
// in one session.
func profileSessionID(userID string) string {
	return userID + "_profile"
}

// planningSessionID is one per user per calendar day.
func (o *Orchestrator) planningSessionID(userID string) string {
	return fmt.Sprintf("%s_meal_%s", userID, o.now().Format("20060102"))
}

// enhanceMealInput appends the fixed instruction block the planner
// needs regardless of how terse the user request is.
func enhanceMealInput(input string, numMeals int) string {
	return fmt.Sprintf(
		"%s\n\nProvide at least %d meal options with ingredients, nutrition information, and preparation instructions.",
		input, numMeals)
}

// ExecuteUnifiedWorkflow handles one raw user input end to end: runs
// profiling first when intent detection selects it (failures absorbed),
// then planning (failures fatal).
func (o *Orchestrator) ExecuteUnifiedWorkflow(ctx context.Context, userID, userInput string, numMeals int) (*Result, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if strings.TrimSpace(userInput) == "" {
		return nil, ErrEmptyInput
	}
	if numMeals < o.minMeals {
		numMeals = o.minMeals
	}

	result := &Result{
		UserID:            userID,
		NumMealsRequested: numMeals,
	}

	kinds := o.DetectPipelines(userInput)
	o.logger.Info("unified workflow started",
		zap.String("user_id", userID),
		zap.Int("num_meals", numMeals),
		zap.Int("pipeline_count", len(kinds)),
	)

	for _, kind := range kinds {
		if kind != pipeline.KindProfiling {
			continue
		}
		response, err := o.runProfiling(ctx, userID, userInput)
		if err != nil {
			// Absorbed: a broken profile update never blocks planning.
			o.logger.Warn("profiling failed, continuing to planning",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			break
		}
		result.ProfileUpdated = true
		result.ProfileResponse = response
	}

	mealOptions, err := o.runPlanning(ctx, userID, userInput, numMeals)
	if err != nil {
		return nil, fmt.Errorf("planning workflow for user %s: %w", userID, err)
	}

	result.MealOptions = mealOptions
	result.Status = "success"
	return result, nil
}

// ExecuteCompleteWorkflow runs profiling then planning with separate
// inputs and no intent detection. Both steps are fatal on failure.
func (o *Orchestrator) ExecuteCompleteWorkflow(ctx context.Context, userID, profileInput, mealInput string, numMeals int) (*Result, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if strings.TrimSpace(profileInput) == "" || strings.TrimSpace(mealInput) == "" {
		return nil, ErrEmptyInput
	}
	if numMeals < o.minMeals {
		numMeals = o.minMeals
	}

	profileResponse, err := o.runProfiling(ctx, userID, profileInput)
	if err != nil {
		return nil, fmt.Errorf("profiling workflow for user %s: %w", userID, err)
	}

	mealOptions, err := o.runPlanning(ctx, userID, mealInput, numMeals)
	if err != nil {
		return nil, fmt.Errorf("planning workflow for user %s: %w", userID, err)
	}

	return &Result{
		UserID:            userID,
		ProfileUpdated:    true,
		ProfileResponse:   profileResponse,
		MealOptions:       mealOptions,
		NumMealsRequested: numMeals,
		Status:            "success",
	}, nil
}

// runProfiling executes the profiling pipeline and returns the terminal
// stage's confirmation.
func (o *Orchestrator) runProfiling(ctx context.Context, userID, input string) (string, error) {
	runner, err := o.Runner(pipeline.KindProfiling)
	if err != nil {
		return "", err
	}

	results, err := runner.Run(ctx, profileSessionID(userID), map[string]any{
		"user_id":    userID,
		"user_input": input,
	})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", fmt.Errorf("profiling produced no results")
	}
	return results[len(results)-1].Output, nil
}

// runPlanning executes the planning pipeline and returns the generated
// meal options.
func (o *Orchestrator) runPlanning(ctx context.Context, userID, input string, numMeals int) (string, error) {
	runner, err := o.Runner(pipeline.KindPlanning)
	if err != nil {
		return "", err
	}

	results, err := runner.Run(ctx, o.planningSessionID(userID), map[string]any{
		"user_id":      userID,
		"user_input":   enhanceMealInput(input, numMeals),
		"current_time": o.now().Format("2006-01-02 15:04:05"),
		"num_meals":    strconv.Itoa(numMeals),
	})
	if err != nil {
		return "", err
	}

	for _, r := range results {
		if r.OutputKey == "meal_options" {
			return r.Output, nil
		}
	}
	return "", fmt.Errorf("planning produced no meal options")
}
