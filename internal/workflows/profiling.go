// Package workflows defines the concrete profiling and planning
// pipelines: their stages, prompts, and tool bindings over the profile
// memory, nutrition lookup, and plan persistence collaborators.
package workflows

import (
	"context"
	"fmt"

	"github.com/nourishlabs/mealpland/internal/pipeline"
)

// ProfileStore is the profile memory surface the workflows need.
// Satisfied by profile.Service.
type ProfileStore interface {
	Save(ctx context.Context, userID, content string) (string, error)
	Recall(ctx context.Context, userID, query string) (string, error)
}

// stringVar pulls a named variable out of a tool's resolved inputs.
func stringVar(vars map[string]any, key string) (string, error) {
	v, ok := vars[key]
	if !ok {
		return "", fmt.Errorf("missing variable %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("variable %q is %T, want string", key, v)
	}
	return s, nil
}

// NewProfiling builds the three-stage profiling pipeline:
// extract bio-data, compute nutrition targets, persist both.
func NewProfiling(gen pipeline.Generator, profiles ProfileStore) (*pipeline.Pipeline, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}

	saver := pipeline.NewToolCapability("save_profile", func(ctx context.Context, vars map[string]any) (string, error) {
		userID, err := stringVar(vars, "user_id")
		if err != nil {
			return "", err
		}
		extracted, err := stringVar(vars, "extracted_profile")
		if err != nil {
			return "", err
		}
		macros, err := stringVar(vars, "calculated_macros")
		if err != nil {
			return "", err
		}

		content := fmt.Sprintf("Profile: %s\nNutrition targets: %s", extracted, macros)
		if _, err := profiles.Save(ctx, userID, content); err != nil {
			return "", err
		}
		return "Profile updated with your details and daily nutrition targets.", nil
	})

	return pipeline.New(
		pipeline.KindProfiling,
		pipeline.PolicyAbsorb,
		[]string{"user_id", "user_input"},
		pipeline.Stage{
			Name:        "ProfileExtractor",
			Instruction: profileExtractorPrompt,
			OutputKey:   "extracted_profile",
			Capability:  pipeline.NewModelCapability("profile_extractor", gen),
		},
		pipeline.Stage{
			Name:        "NutritionCalculator",
			Instruction: nutritionCalculatorPrompt,
			OutputKey:   "calculated_macros",
			Capability:  pipeline.NewModelCapability("nutrition_calculator", gen),
		},
		pipeline.Stage{
			Name:        "ProfileSaver",
			Instruction: profileSaverPrompt,
			Capability:  saver,
		},
	)
}
