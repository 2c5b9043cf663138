// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// Runner is a component with a blocking run loop.
type Runner interface {
	Run(ctx context.Context) error
}

// Stopper is implemented by runners that hold resources beyond ctx, like a
// broker subscription.
type Stopper interface {
	Stop()
}

// RunnerService wraps a Runner as a supervised service.
//
// A Run that returns an error is restarted by suture. A Run that returns
// nil while ctx is still live was stopped on purpose and is not restarted.
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService creates the wrapper. name identifies it in supervisor
// events.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		if stopper, ok := s.runner.(Stopper); ok {
			stopper.Stop()
		}
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", s.name, err)
	}
	return suture.ErrDoNotRestart
}

// String implements fmt.Stringer.
func (s *RunnerService) String() string {
	return s.name
}
