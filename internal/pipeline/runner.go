package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/nourishlabs/mealpland/internal/session"
)

// Tracer for OpenTelemetry instrumentation.
var runnerTracer = otel.Tracer("mealpland.pipeline.runner")

// Runner binds one pipeline to the shared session store and executes it.
// The runner itself carries no per-call state; it is safe to share one
// instance across concurrent calls with distinct session IDs.
type Runner struct {
	pipeline *Pipeline
	sessions *session.Store
	logger   *zap.Logger
}

// NewRunner creates a runner for the given pipeline.
func NewRunner(p *Pipeline, sessions *session.Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		pipeline: p,
		sessions: sessions,
		logger:   logger,
	}
}

// Pipeline returns the bound pipeline.
func (r *Runner) Pipeline() *Pipeline { return r.pipeline }

// Run merges initial into the session's context (initial values win) and
// executes the stages strictly in declared order. Each stage sees the
// cumulative context written by all prior stages plus the initial context.
//
// Run stops at the first stage failure and returns the accumulated results
// alongside a *StageError; partial results are never discarded silently. A
// failed stage leaves no partial context mutation behind.
func (r *Runner) Run(ctx context.Context, sessionID string, initial map[string]any) ([]StageResult, error) {
	ctx, span := runnerTracer.Start(ctx, "Runner.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline.kind", string(r.pipeline.kind)),
		attribute.String("session.id", sessionID),
	)

	sess := r.sessions.GetOrCreate(sessionID)
	sess.Merge(initial)

	r.logger.Info("pipeline run started",
		zap.String("pipeline", string(r.pipeline.kind)),
		zap.String("session_id", sessionID),
		zap.Int("stages", len(r.pipeline.stages)),
	)

	results := make([]StageResult, 0, len(r.pipeline.stages))
	for _, stage := range r.pipeline.stages {
		result, err := r.executeStage(ctx, stage, sess)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.Warn("pipeline run stopped at failed stage",
				zap.String("pipeline", string(r.pipeline.kind)),
				zap.String("stage", stage.Name),
				zap.Error(err),
			)
			return results, &StageError{Stage: stage.Name, Err: err}
		}
		results = append(results, result)
	}

	span.SetStatus(codes.Ok, "success")
	r.logger.Info("pipeline run completed",
		zap.String("pipeline", string(r.pipeline.kind)),
		zap.String("session_id", sessionID),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// executeStage resolves the stage's inputs, renders its payload, invokes
// its capability, and on success writes the output key. The context is only
// mutated after the capability call succeeds.
func (r *Runner) executeStage(ctx context.Context, stage Stage, sess *session.Context) (StageResult, error) {
	ctx, span := runnerTracer.Start(ctx, "Runner.executeStage")
	defer span.End()
	span.SetAttributes(attribute.String("stage.name", stage.Name))

	vars := make(map[string]any)
	for _, key := range stage.RequiredInputs() {
		v, ok := sess.Get(key)
		if !ok {
			return StageResult{}, &MissingContextError{Stage: stage.Name, Key: key}
		}
		vars[key] = v
	}

	payload, err := stage.Instruction.Render(vars)
	if err != nil {
		// Unreachable for well-formed pipelines: Render only fails on a
		// placeholder absent from vars, and vars covers Vars() exactly.
		return StageResult{}, err
	}

	start := time.Now()
	output, err := stage.Capability.Invoke(ctx, Input{Payload: payload, Vars: vars})
	if err != nil {
		span.RecordError(err)
		return StageResult{}, err
	}

	if stage.OutputKey != "" {
		sess.Set(stage.OutputKey, output)
	}

	r.logger.Debug("stage completed",
		zap.String("stage", stage.Name),
		zap.String("output_key", stage.OutputKey),
		zap.Duration("duration", time.Since(start)),
	)

	return StageResult{
		Stage:     stage.Name,
		OutputKey: stage.OutputKey,
		Output:    output,
		Duration:  time.Since(start),
	}, nil
}
