package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Kyellog-silog/rustique-cafe/internal/coordinator/sagalog"
)

// Step is a single unit of work in a saga. Compensate undoes a successful
// Execute and is only ever called after a later step failed.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Failure is returned by Start when a step fails. CompensationErrs is empty
// when every completed step was rolled back.
type Failure struct {
	SagaID           string
	Step             string
	Err              error
	CompensationErrs []error
}

func (f *Failure) Error() string {
	if f.Compensated() {
		return fmt.Sprintf("saga %s: step %s failed: %v", f.SagaID, f.Step, f.Err)
	}
	return fmt.Sprintf("saga %s: step %s failed: %v; compensation failed: %v",
		f.SagaID, f.Step, f.Err, f.CompensationErr())
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Compensated() bool { return len(f.CompensationErrs) == 0 }

// CompensationErr joins every compensation failure, or returns nil.
func (f *Failure) CompensationErr() error { return errors.Join(f.CompensationErrs...) }

// Orchestrator runs steps in order and compensates completed steps in LIFO
// order when one fails.
type Orchestrator struct {
	sagaID string
	owner  string
	steps  []Step
	log    sagalog.Repository
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOwner stamps every log entry with owner, the tenant the saga works
// for. Readers only return entries of the owner they are asked about.
func WithOwner(owner string) Option {
	return func(o *Orchestrator) { o.owner = owner }
}

// NewOrchestrator builds an orchestrator. repo may be nil, in which case
// transitions are not persisted.
func NewOrchestrator(sagaID string, steps []Step, repo sagalog.Repository, opts ...Option) *Orchestrator {
	o := &Orchestrator{sagaID: sagaID, steps: steps, log: repo}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start executes the steps sequentially. payload is stored once with the
// STARTED entry.
//
// A cancelled ctx observed between steps fails the next step. Compensation
// and log writes run on a context detached from ctx's cancellation so an
// in-flight saga is never abandoned halfway through its rollback.
func (o *Orchestrator) Start(ctx context.Context, payload string) error {
	o.record(ctx, sagalog.StatusStarted, "", payload, nil)

	var done []Step
	for _, step := range o.steps {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, step, fmt.Errorf("not started: %w", err), done)
		}

		slog.DebugContext(ctx, "executing saga step", "saga_id", o.sagaID, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			return o.fail(ctx, step, err, done)
		}
		done = append(done, step)
		o.record(ctx, sagalog.StatusStepDone, step.Name(), "", nil)
	}

	o.record(ctx, sagalog.StatusCompleted, "", "", nil)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, step Step, err error, done []Step) error {
	ctx = context.WithoutCancel(ctx)
	slog.WarnContext(ctx, "saga step failed, starting rollback",
		"saga_id", o.sagaID, "step", step.Name(), "error", err)

	msgs := []string{fmt.Sprintf("step %s failed: %v", step.Name(), err)}
	o.record(ctx, sagalog.StatusCompensating, step.Name(), "", msgs)

	failure := &Failure{SagaID: o.sagaID, Step: step.Name(), Err: err}
	failure.CompensationErrs = o.rollback(ctx, done)

	if failure.Compensated() {
		o.record(ctx, sagalog.StatusFailed, step.Name(), "", msgs)
		return failure
	}
	for _, cerr := range failure.CompensationErrs {
		msgs = append(msgs, cerr.Error())
	}
	o.record(ctx, sagalog.StatusCompensationFailed, step.Name(), "", msgs)
	return failure
}

func (o *Orchestrator) rollback(ctx context.Context, steps []Step) []error {
	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		slog.InfoContext(ctx, "compensating saga step", "saga_id", o.sagaID, "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: failed to compensate saga step",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			errs = append(errs, fmt.Errorf("compensation of %s failed: %w", step.Name(), err))
		}
	}
	return errs
}

func (o *Orchestrator) record(ctx context.Context, status sagalog.Status, step, payload string, errs []string) {
	if o.log == nil {
		return
	}
	entry := sagalog.NewEntry(ctx, o.sagaID, status, step, payload, errs)
	entry.Owner = o.owner
	if err := o.log.Save(context.WithoutCancel(ctx), entry); err != nil {
		slog.WarnContext(ctx, "saga log write failed", "saga_id", o.sagaID, "status", status, "error", err)
	}
}
