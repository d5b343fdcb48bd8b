package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrEmptyTemplate is returned when a template has no text.
var ErrEmptyTemplate = errors.New("empty template")

// placeholderPattern matches {variable_name} placeholders. Names are
// restricted to identifier characters so literal braces in prose or JSON
// examples do not become accidental variables.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Template is an instruction text with {var} placeholders. The placeholder
// set is extracted once at construction, so a stage's required inputs are
// known statically. Rendering is a pure transform from resolved variables
// to the final payload; there is no implicit lookup and no control flow.
type Template struct {
	text string
	vars []string
}

// NewTemplate parses text and records its placeholder names.
func NewTemplate(text string) (Template, error) {
	if strings.TrimSpace(text) == "" {
		return Template{}, ErrEmptyTemplate
	}

	seen := make(map[string]bool)
	var vars []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			vars = append(vars, name)
		}
	}
	sort.Strings(vars)

	return Template{text: text, vars: vars}, nil
}

// MustTemplate is NewTemplate that panics on error. For package-level
// prompt constants whose validity is covered by tests.
func MustTemplate(text string) Template {
	t, err := NewTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Vars returns the placeholder names in sorted order.
func (t Template) Vars() []string {
	out := make([]string, len(t.vars))
	copy(out, t.vars)
	return out
}

// Render substitutes vars into the template. Every placeholder must be
// resolvable; an absent variable is an error, not a silent skip.
func (t Template) Render(vars map[string]any) (string, error) {
	var missing string
	rendered := placeholderPattern.ReplaceAllStringFunc(t.text, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return fmt.Sprintf("%v", v)
	})
	if missing != "" {
		return "", fmt.Errorf("unresolved template variable %q", missing)
	}
	return rendered, nil
}
