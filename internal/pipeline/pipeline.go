package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Step is one stage of processing a crawl report.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
type Step interface {
	// Do runs the step against report. A returned error aborts the
	// pipeline unless it was built WithContinueOnError.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name identifies the step in logs and in report.PerformedSteps.
	Name() string
}

// Finalizer marks a step that still runs after the pipeline was aborted by
// cancellation or a failed step. Fingerprinting and saving a partial crawl
// are finalizers: an interrupted crawl is still worth keeping.
type Finalizer interface {
	Step
	Final()
}

// Pipeline runs steps in order over a single report.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running the remaining steps after one fails.
// The failure is still recorded in the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps, keeping their order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order and returns the error that aborted the
// pipeline, if any.
//
// Cancellation is checked between steps; a step that is already running is
// expected to honour ctx itself (the crawl step drains its in-flight
// fetches). Once the pipeline is aborted only Finalizer steps run, and
// report.Cancelled is set when the abort came from ctx.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) error {
	var abortErr error

	for _, step := range p.steps {
		if abortErr == nil && ctx.Err() != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"seed", report.Seed,
				"reason", ctx.Err(),
			)
			report.Cancelled = true
			abortErr = ctx.Err()
		}

		if abortErr != nil {
			if _, ok := step.(Finalizer); !ok {
				p.logger.Debug("step skipped", "step", step.Name(), "seed", report.Seed)
				continue
			}
		}

		if err := p.runStep(ctx, step, report); err != nil {
			// The first failure explains the report; later ones are only logged.
			if report.Error == nil {
				report.SetError(err)
			}
			if abortErr == nil && !p.continueOnError {
				abortErr = err
			}
		}
	}

	return abortErr
}

// runStep executes one step and records it in report.PerformedSteps when it
// succeeds.
func (p *Pipeline) runStep(ctx context.Context, step Step, report *model.CrawlReport) error {
	p.logger.Info("executing step", "step", step.Name(), "seed", report.Seed)
	start := time.Now()

	if err := step.Do(ctx, report); err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"seed", report.Seed,
			"error", err,
		)
		return err
	}

	p.logger.Debug("step completed",
		"step", step.Name(),
		"seed", report.Seed,
		"duration", time.Since(start),
	)
	report.PerformedSteps = append(report.PerformedSteps, step.Name())
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
