package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
)

// Harness runs a sequence of tasks and reports their outcome in a consistent way.
// Common setup and teardown can be attached with pre- and post- execution hooks.
type Harness struct {
	PreExecHook  Task
	PostExecHook Task

	failfast bool
}

// New constructs a harness.
func New(opts ...Option) *Harness {
	h := Harness{
		PreExecHook:  func(_ context.Context) error { return nil },
		PostExecHook: func(_ context.Context) error { return nil },
	}

	for _, opt := range opts {
		opt(&h)
	}

	return &h
}

// Execute a list of tasks inside the harness.
// Tasks run sequentially. By default every task runs and all errors are joined and
// returned at the end; with [WithFailFast] execution stops at the first failing task
// and its error is returned wrapped, so callers can still match it with errors.As.
func (h *Harness) Execute(ctx context.Context, tasks ...Task) error {
	var errs []error
	start := time.Now()

	fmt.Printf("\n")

	if err := h.PreExecHook(ctx); err != nil {
		return fmt.Errorf("failed to run pre exec hook: %w", err)
	}

	for _, task := range tasks {
		if err := task(ctx); err != nil {
			errs = append(errs, err)
			if h.failfast {
				break
			}
		}
	}

	if err := h.PostExecHook(ctx); err != nil {
		return fmt.Errorf("failed to run post exec hook: %w", err)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	color.New(color.FgHiBlack).Printf("------------------------\n\n")

	if len(errs) > 0 {
		color.Red(" ✘ finished with errors after %s", elapsed)
		for _, err := range errs {
			color.Red("   • %s", err)
		}
		fmt.Printf("\n")

		if h.failfast {
			return errs[0]
		}
		return errors.Join(errs...)
	}

	color.Green(" ✔ all good after %s\n\n", elapsed)
	return nil
}

// Task defines the basic function that the harness executes.
// Additional configuration can be captured by closures that return Tasks.
type Task func(ctx context.Context) error

type Option func(h *Harness)

// WithPreExecFunc allows specifying a task that will be run every execution, before the
// specific execution tasks are run.
func WithPreExecFunc(hook Task) Option {
	return func(h *Harness) {
		h.PreExecHook = hook
	}
}

// WithPostExecFunc allows specifying a task that will be run every execution, after
// all the tasks have finished, even if some of them failed.
func WithPostExecFunc(hook Task) Option {
	return func(h *Harness) {
		h.PostExecHook = hook
	}
}

// WithFailFast stops the execution at the first failing task.
func WithFailFast() Option {
	return func(h *Harness) {
		h.failfast = true
	}
}

// When returns the task only if the condition holds, otherwise a task that does nothing.
func When(condition bool, task Task) Task {
	if !condition {
		return noop
	}
	return task
}

func noop(_ context.Context) error { return nil }
