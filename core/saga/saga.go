// Package saga runs multi-step remote writes with best-effort compensation
// of the completed steps when a later step fails.
package saga

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

type Status string

const (
	StatusPending      Status = "pending"
	StatusRunning      Status = "running"
	StatusSucceeded    Status = "succeeded"
	StatusCompensating Status = "compensating"
	StatusCompensated  Status = "compensated"
	// StatusFailed is set when at least one compensation failed too.
	StatusFailed Status = "failed"
)

// Step is one remote write. Compensate may be nil when the step cannot or need not be undone.
type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

type Saga struct {
	name   string
	steps  []Step
	logger core.Logger
	status Status
}

func New(name string, logger core.Logger, steps ...Step) *Saga {
	return &Saga{name: name, steps: steps, logger: logger, status: StatusPending}
}

func (s *Saga) Status() Status { return s.status }

// Run executes the steps strictly in order. When a step fails, the completed steps are
// compensated in reverse order; compensation failures are logged only and never replace
// the original error, which is returned.
func (s *Saga) Run(ctx context.Context) error {
	s.status = StatusRunning
	for i, step := range s.steps {
		if err := step.Do(ctx); err != nil {
			s.compensate(ctx, i-1)
			return errors.Wrap(err, step.Name)
		}
	}
	s.status = StatusSucceeded
	return nil
}

func (s *Saga) compensate(ctx context.Context, last int) {
	s.status = StatusCompensating
	failed := false
	for i := last; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			failed = true
			s.logger.Warn(fmt.Sprintf("saga %s: compensating %q failed", s.name, step.Name), err)
		}
	}
	if failed {
		s.status = StatusFailed
		return
	}
	s.status = StatusCompensated
}

// Pair creates a primary resource then a secondary one that depends on it.
// If the secondary fails, the primary is compensated (best-effort) and the secondary's error is returned.
// A nil `compensate` skips compensation, eg. when the primary already existed.
func Pair[P, S any](
	ctx context.Context,
	logger core.Logger,
	name string,
	primary func(ctx context.Context) (P, error),
	secondary func(ctx context.Context, p P) (S, error),
	compensate func(ctx context.Context, p P) error,
) (S, error) {
	var (
		p P
		s S
	)
	steps := []Step{
		{
			Name: "primary",
			Do: func(ctx context.Context) (err error) {
				p, err = primary(ctx)
				return err
			},
		},
		{
			Name: "secondary",
			Do: func(ctx context.Context) (err error) {
				s, err = secondary(ctx, p)
				return err
			},
		},
	}
	if compensate != nil {
		steps[0].Compensate = func(ctx context.Context) error { return compensate(ctx, p) }
	}
	if err := New(name, logger, steps...).Run(ctx); err != nil {
		var zero S
		return zero, err
	}
	return s, nil
}
