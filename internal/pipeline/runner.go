// Package pipeline threads immutable dataset snapshots through a sequence
// of pure stages: load, one incorporation pass per annotation story,
// relabel, validate, save, and metadata push. Stores and sources are
// explicit values handed to the stage builders; there is no shared session
// state between stages beyond the dataset itself.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marrowmap/pkg/domain"
)

// Stage is one pipeline step. Run receives the dataset produced by the
// previous stage and returns the next one; stages must not mutate their
// input.
type Stage struct {
	Name string
	Run  func(ctx context.Context, ds domain.Dataset) (domain.Dataset, error)
}

// StageResult records the outcome of one executed stage.
type StageResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// RunReport summarizes one pipeline execution.
type RunReport struct {
	RunID  string        `json:"run_id"`
	Stages []StageResult `json:"stages"`
}

// Runner executes stages in order with logging, metrics, and tracing.
type Runner struct {
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// NewRunner constructs a runner. Nil arguments fall back to no-op
// implementations.
func NewRunner(logger *zap.Logger, metrics MetricsRecorder, tracer Tracer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if tracer == nil {
		tracer = noopTracer{}
	}
	return &Runner{logger: logger, metrics: metrics, tracer: tracer}
}

// Run executes the stages in order, stopping at the first failure. The
// report always covers every stage that started.
func (r *Runner) Run(ctx context.Context, ds domain.Dataset, stages []Stage) (domain.Dataset, RunReport, error) {
	report := RunReport{RunID: uuid.NewString()}
	logger := r.logger.With(zap.String("run_id", report.RunID))
	logger.Info("pipeline run starting", zap.Int("stages", len(stages)))

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return ds, report, err
		}
		stageCtx, span := r.tracer.Start(ctx, stage.Name)
		started := time.Now()
		next, err := stage.Run(stageCtx, ds)
		duration := time.Since(started)
		span.End(err)
		r.metrics.Observe(ctx, stage.Name, err == nil, duration)

		result := StageResult{Name: stage.Name, Duration: duration}
		if err != nil {
			result.Err = err.Error()
			report.Stages = append(report.Stages, result)
			logger.Error("stage failed", zap.String("stage", stage.Name),
				zap.Duration("duration", duration), zap.Error(err))
			return ds, report, fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		report.Stages = append(report.Stages, result)
		logger.Info("stage complete", zap.String("stage", stage.Name),
			zap.Duration("duration", duration), zap.Int("regions", len(next.Regions)))
		ds = next
	}
	logger.Info("pipeline run complete")
	return ds, report, nil
}
