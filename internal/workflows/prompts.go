package workflows

import "github.com/nourishlabs/mealpland/internal/pipeline"

// Stage instruction templates. Placeholder sets define each stage's
// required context inputs, so edits here change pipeline wiring.

var profileExtractorPrompt = pipeline.MustTemplate(`You are a nutrition profiling assistant.

Extract every piece of personal data relevant to nutrition from the user's message:
age, weight, height, sex, activity level, medical conditions (for example diabetes),
dietary style (vegetarian, vegan), allergies, likes and dislikes.

Return a compact JSON object with only the fields the user actually stated.
Do not invent values. If the message contains no personal data, return {}.

User message:
{user_input}`)

var nutritionCalculatorPrompt = pipeline.MustTemplate(`You are a dietitian calculating daily nutrition targets.

Given the extracted profile below, estimate daily calorie needs and macro targets
(protein, carbohydrates, fat in grams). State the assumptions you make for any
missing value. Keep the answer short and structured.

Extracted profile:
{extracted_profile}`)

var recipeFinderPrompt = pipeline.MustTemplate(`You are a recipe researcher.

Find recipe ideas matching the request below. Respect every constraint in the
user profile (allergies and dietary style are hard constraints). Use the
nutrition facts to keep suggestions aligned with the user's targets.

Request: {user_input}

User profile:
{user_profile}

Nutrition facts:
{nutrition_facts}

List candidate recipes with a one-line description each.`)

var mealPlannerPrompt = pipeline.MustTemplate(`You are a meal planner composing concrete meal options.

Current time: {current_time}
Request: {user_input}

Candidate recipes:
{recipes}

Produce at least {num_meals} distinct meal options as a JSON array. Each element
must have exactly these string fields:
  "name", "description", "ingredients", "nutrition", "time"

Return only the JSON array, no surrounding prose.`)

// Tool stage templates. Tools consume resolved variables rather than the
// rendered text, so these exist to declare inputs.

var profileSaverPrompt = pipeline.MustTemplate(
	`Save profile for {user_id}: {extracted_profile} with targets {calculated_macros}`)

var profileRecallPrompt = pipeline.MustTemplate(
	`Recall profile for {user_id} relevant to: {user_input}`)

var nutritionLookupPrompt = pipeline.MustTemplate(
	`Nutrition facts for: {user_input}`)

var planSaverPrompt = pipeline.MustTemplate(
	`Save plan for {user_id} from request {user_input}: {meal_options}`)
