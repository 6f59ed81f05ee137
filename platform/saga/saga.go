// Package saga runs an ordered list of remote steps and unwinds the completed
// ones when a later step fails. It is used where the backing platform offers
// no transaction spanning the resources being touched.
package saga

import (
	"context"
	"fmt"
)

// Step is one forward action with an optional compensation.
// Compensate is only invoked if Action returned nil.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports the step that stopped the run.
type StepError struct {
	Step string
	Err  error
	// CompensationErrs holds failures of the unwinding phase, if any.
	CompensationErrs []error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Saga executes steps strictly in sequence.
type Saga struct {
	steps []Step
	// OnCompensationError is called for every compensation that fails.
	OnCompensationError func(step string, err error)
}

// New creates a saga from the given steps.
func New(steps ...Step) *Saga {
	return &Saga{steps: steps}
}

// Run executes every step in order. On the first failure it runs the
// compensations of the completed steps in reverse order and returns a
// *StepError carrying the original cause. Compensation failures never
// replace that cause.
func (s *Saga) Run(ctx context.Context) error {
	completed := make([]Step, 0, len(s.steps))

	for _, step := range s.steps {
		if err := step.Action(ctx); err != nil {
			stepErr := &StepError{Step: step.Name, Err: err}
			stepErr.CompensationErrs = s.unwind(ctx, completed)
			return stepErr
		}
		completed = append(completed, step)
	}

	return nil
}

func (s *Saga) unwind(ctx context.Context, completed []Step) []error {
	// Compensations must run even if the caller's context was cancelled mid-step.
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
			if s.OnCompensationError != nil {
				s.OnCompensationError(step.Name, err)
			}
		}
	}
	return errs
}
