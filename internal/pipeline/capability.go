package pipeline

import (
	"context"
)

// Input carries the two views of a stage's resolved context into a
// capability call. Model-backed capabilities consume the rendered Payload;
// tool capabilities consume the explicit keyword Vars.
type Input struct {
	// Payload is the stage's instruction template with all variables
	// substituted.
	Payload string

	// Vars maps the stage's required input names to their resolved values.
	Vars map[string]any
}

// Capability is an external invocation a stage performs to produce its
// output: a model-backed reasoning call or a named tool call. The core
// treats both uniformly as "invoke, get result or failure". Invocations
// may block on network I/O; cancellation and deadlines arrive through ctx,
// but an issued call is awaited to completion or failure.
type Capability interface {
	// Name identifies the capability in errors and logs.
	Name() string

	// Invoke performs the call. Failures should be wrapped in
	// *CapabilityError so the orchestrator can classify them.
	Invoke(ctx context.Context, in Input) (string, error)
}

// Generator is the model-call contract a ModelCapability needs. Satisfied
// by llm.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelCapability invokes a chat model with the stage's rendered payload.
type ModelCapability struct {
	name string
	gen  Generator
}

// NewModelCapability creates a model-backed capability.
func NewModelCapability(name string, gen Generator) *ModelCapability {
	return &ModelCapability{name: name, gen: gen}
}

func (c *ModelCapability) Name() string { return c.name }

func (c *ModelCapability) Invoke(ctx context.Context, in Input) (string, error) {
	out, err := c.gen.Generate(ctx, in.Payload)
	if err != nil {
		return "", &CapabilityError{Capability: c.name, Err: err}
	}
	return out, nil
}

// ToolFunc is the signature of a tool capability: explicit keyword
// arguments in, structured result or error out.
type ToolFunc func(ctx context.Context, vars map[string]any) (string, error)

// ToolCapability adapts a ToolFunc into a Capability.
type ToolCapability struct {
	name string
	fn   ToolFunc
}

// NewToolCapability creates a tool-backed capability.
func NewToolCapability(name string, fn ToolFunc) *ToolCapability {
	return &ToolCapability{name: name, fn: fn}
}

func (c *ToolCapability) Name() string { return c.name }

func (c *ToolCapability) Invoke(ctx context.Context, in Input) (string, error) {
	out, err := c.fn(ctx, in.Vars)
	if err != nil {
		return "", &CapabilityError{Capability: c.name, Err: err}
	}
	return out, nil
}
