package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nourishlabs/mealpland/internal/pipeline"
	"github.com/nourishlabs/mealpland/internal/planstore"
)

// NutritionLookup is the nutrition facts surface the planning pipeline
// needs. Satisfied by nutrition.Client.
type NutritionLookup interface {
	Lookup(ctx context.Context, query string) (string, error)
}

// PlanSaver is the plan persistence surface. Satisfied by
// planstore.Store.
type PlanSaver interface {
	SavePlan(ctx context.Context, userID, requestText string, recipes []planstore.Recipe) (string, error)
}

// Markers written into the session when an optional lookup produces
// nothing. Later model stages see these instead of an error.
const (
	noProfileMarker   = "No stored profile. Assume a general healthy adult with no restrictions."
	noNutritionMarker = "Nutrition data unavailable for this request."
)

// NewPlanning builds the five-stage planning pipeline: recall the
// profile, look up nutrition facts, find recipes, compose meal options,
// persist the plan. Profile recall and nutrition lookup degrade to
// markers instead of failing; a malformed planner output is fatal.
func NewPlanning(gen pipeline.Generator, profiles ProfileStore, lookup NutritionLookup, plans PlanSaver, logger *zap.Logger) (*pipeline.Pipeline, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if plans == nil {
		return nil, fmt.Errorf("plan saver is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	recall := pipeline.NewToolCapability("recall_profile", func(ctx context.Context, vars map[string]any) (string, error) {
		userID, err := stringVar(vars, "user_id")
		if err != nil {
			return "", err
		}
		query, err := stringVar(vars, "user_input")
		if err != nil {
			return "", err
		}

		found, err := profiles.Recall(ctx, userID, query)
		if err != nil {
			return "", err
		}
		if found == "" {
			return noProfileMarker, nil
		}
		return found, nil
	})

	facts := pipeline.NewToolCapability("nutrition_lookup", func(ctx context.Context, vars map[string]any) (string, error) {
		query, err := stringVar(vars, "user_input")
		if err != nil {
			return "", err
		}
		if lookup == nil {
			return noNutritionMarker, nil
		}
		result, err := lookup.Lookup(ctx, query)
		if err != nil {
			// Missing nutrition data never blocks planning.
			logger.Warn("nutrition lookup degraded", zap.Error(err))
			return noNutritionMarker, nil
		}
		return result, nil
	})

	saver := pipeline.NewToolCapability("save_plan", func(ctx context.Context, vars map[string]any) (string, error) {
		userID, err := stringVar(vars, "user_id")
		if err != nil {
			return "", err
		}
		request, err := stringVar(vars, "user_input")
		if err != nil {
			return "", err
		}
		raw, err := stringVar(vars, "meal_options")
		if err != nil {
			return "", err
		}

		recipes, err := ParseMealOptions(raw)
		if err != nil {
			return "", err
		}
		if _, err := plans.SavePlan(ctx, userID, request, recipes); err != nil {
			return "", err
		}

		names := make([]string, len(recipes))
		for i, r := range recipes {
			names[i] = r.Name
		}
		return fmt.Sprintf("Saved %d meal options: %s", len(recipes), strings.Join(names, ", ")), nil
	})

	return pipeline.New(
		pipeline.KindPlanning,
		pipeline.PolicyFatal,
		[]string{"user_id", "user_input", "current_time", "num_meals"},
		pipeline.Stage{
			Name:        "ProfileRecall",
			Instruction: profileRecallPrompt,
			OutputKey:   "user_profile",
			Capability:  recall,
		},
		pipeline.Stage{
			Name:        "NutritionLookup",
			Instruction: nutritionLookupPrompt,
			OutputKey:   "nutrition_facts",
			Capability:  facts,
		},
		pipeline.Stage{
			Name:        "RecipeFinder",
			Instruction: recipeFinderPrompt,
			OutputKey:   "recipes",
			Capability:  pipeline.NewModelCapability("recipe_finder", gen),
		},
		pipeline.Stage{
			Name:        "MealPlanner",
			Instruction: mealPlannerPrompt,
			OutputKey:   "meal_options",
			Capability:  pipeline.NewModelCapability("meal_planner", gen),
		},
		pipeline.Stage{
			Name:        "PlanSaver",
			Instruction: planSaverPrompt,
			Capability:  saver,
		},
	)
}

// mealOption tolerates models emitting ingredients or nutrition as
// structured values instead of plain strings.
type mealOption struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Ingredients json.RawMessage `json:"ingredients"`
	Nutrition   json.RawMessage `json:"nutrition"`
	Time        string          `json:"time"`
}

// ParseMealOptions extracts the JSON array from a planner response and
// decodes it into plan recipes. Model output may surround the array
// with prose or a code fence; everything outside the outermost brackets
// is ignored.
func ParseMealOptions(raw string) ([]planstore.Recipe, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in planner output")
	}

	var options []mealOption
	if err := json.Unmarshal([]byte(raw[start:end+1]), &options); err != nil {
		return nil, fmt.Errorf("decoding meal options: %w", err)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("planner produced no meal options")
	}

	recipes := make([]planstore.Recipe, len(options))
	for i, opt := range options {
		if opt.Name == "" {
			return nil, fmt.Errorf("meal option %d has no name", i)
		}
		recipes[i] = planstore.Recipe{
			Name:        opt.Name,
			Description: opt.Description,
			Ingredients: flattenJSON(opt.Ingredients),
			Nutrition:   flattenJSON(opt.Nutrition),
			Time:        opt.Time,
		}
	}
	return recipes, nil
}

// flattenJSON renders a raw JSON value as display text: strings lose
// their quotes, arrays become comma-separated lists, anything else is
// kept as compact JSON.
func flattenJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}

	return string(raw)
}
