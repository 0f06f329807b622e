package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	applog "github.com/liliang-cn/mcp-orchestrator/pkg/log"
)

// Step is one named unit of a run.
type Step struct {
	Name        string
	Description string
	Run         func(ctx context.Context, o *Orchestrator) error
}

// StepResult records how a step ended.
type StepResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID   string
	Steps   []StepResult
	Elapsed time.Duration
}

// Failed returns the results of steps that returned an error.
func (r *Report) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// OK reports whether every step succeeded.
func (r *Report) OK() bool { return len(r.Failed()) == 0 }

// Runner executes steps in order. A failing step is logged and recorded and
// the next step still runs.
type Runner struct {
	logger   *slog.Logger
	narrator *Narrator
}

// NewRunner creates a runner. narrator may be nil.
func NewRunner(narrator *Narrator) *Runner {
	return &Runner{
		logger:   applog.WithModule("runner"),
		narrator: narrator,
	}
}

// Run executes steps against o. A cancelled ctx stops the run before the
// next step starts; the remaining steps are recorded with ctx.Err().
func (r *Runner) Run(ctx context.Context, o *Orchestrator, steps []Step) *Report {
	report := &Report{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", report.RunID)
	start := time.Now()

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			report.Steps = append(report.Steps, StepResult{Name: step.Name, Err: err})
			continue
		}

		stepStart := time.Now()
		err := runStep(ctx, o, step)
		res := StepResult{Name: step.Name, Err: err, Duration: time.Since(stepStart)}
		report.Steps = append(report.Steps, res)

		if err != nil {
			logger.Error("step failed", "step", step.Name, "error", err)
			if r.narrator != nil {
				r.narrator.Fail("%s failed: %v", step.Name, err)
			}
			continue
		}
		logger.Debug("step completed", "step", step.Name, "duration", res.Duration)
	}

	report.Elapsed = time.Since(start)
	return report
}

// runStep shields the run from a panicking step.
func runStep(ctx context.Context, o *Orchestrator, step Step) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("step %s panicked: %v", step.Name, p)
		}
	}()
	if step.Run == nil {
		return fmt.Errorf("step %s has no function", step.Name)
	}
	return step.Run(ctx, o)
}
