package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantVars []string
		wantErr  error
	}{
		{
			name:     "no placeholders",
			text:     "You are a helpful assistant.",
			wantVars: nil,
		},
		{
			name:     "single placeholder",
			text:     "Extract bio-data from: {user_input}",
			wantVars: []string{"user_input"},
		},
		{
			name:     "repeated placeholder counted once",
			text:     "{user_id} then again {user_id} and {recipes}",
			wantVars: []string{"recipes", "user_id"},
		},
		{
			name:     "vars sorted",
			text:     "{zeta} {alpha}",
			wantVars: []string{"alpha", "zeta"},
		},
		{
			name:     "json braces are not placeholders",
			text:     `Return JSON like {"name": "oats", "time": 10} for {user_input}`,
			wantVars: []string{"user_input"},
		},
		{
			name:    "empty",
			text:    "   ",
			wantErr: ErrEmptyTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := NewTemplate(tt.text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVars, tmpl.Vars())
		})
	}
}

func TestTemplateRender(t *testing.T) {
	tmpl, err := NewTemplate("Plan meals for {user_id} using {recipes}.")
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]any{
		"user_id": "user123",
		"recipes": "oats; lentil soup",
	})
	require.NoError(t, err)
	assert.Equal(t, "Plan meals for user123 using oats; lentil soup.", out)
}

func TestTemplateRenderNonString(t *testing.T) {
	tmpl := MustTemplate("at least {num_meals} meals")
	out, err := tmpl.Render(map[string]any{"num_meals": 5})
	require.NoError(t, err)
	assert.Equal(t, "at least 5 meals", out)
}

func TestTemplateRenderMissingVar(t *testing.T) {
	tmpl := MustTemplate("needs {present} and {absent}")
	_, err := tmpl.Render(map[string]any{"present": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent")
}

func TestTemplateRenderIsPure(t *testing.T) {
	tmpl := MustTemplate("value: {v}")
	for i := 0; i < 3; i++ {
		out, err := tmpl.Render(map[string]any{"v": "same"})
		require.NoError(t, err)
		assert.Equal(t, "value: same", out)
	}
}
