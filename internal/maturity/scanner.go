// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package maturity

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ferm/internal/database"
	"ferm/internal/garden"
	"ferm/internal/logging"
	"ferm/internal/metrics"
)

// ErrScanInProgress is returned by RunOnce while another scan is running.
var ErrScanInProgress = errors.New("maturity scan already in progress")

// PlotFinder returns matured plots that have not been announced.
type PlotFinder interface {
	FindMaturedUnnotified(ctx context.Context, cutoff time.Time) ([]database.MaturedPlot, error)
}

// Emitter sends one notification.
type Emitter interface {
	Emit(ctx context.Context, plot database.MaturedPlot) (Strategy, error)
}

// ScannerConfig tunes the Scanner.
type ScannerConfig struct {
	// Interval between scans (default: 1 minute).
	Interval time.Duration
	// Growth is how long a crop takes to mature.
	Growth time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// ScanResult summarises one scan.
type ScanResult struct {
	Found   int
	Emitted int
	Failed  int
}

// Scanner looks for matured plots on a fixed interval.
type Scanner struct {
	finder  PlotFinder
	emitter Emitter
	cfg     ScannerConfig
	logger  zerolog.Logger

	running atomic.Bool
}

// NewScanner builds a Scanner.
func NewScanner(finder PlotFinder, emitter Emitter, cfg ScannerConfig) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scanner{
		finder:  finder,
		emitter: emitter,
		cfg:     cfg,
		logger:  logging.WithComponent("maturity-scanner"),
	}
}

// Run scans immediately and then every Interval until ctx is done. Scan
// errors are logged and never end the loop.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.cfg.Interval).Dur("growth", s.cfg.Growth).Msg("Maturity scanner started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			s.logger.Info().Msg("Maturity scanner stopped")
			return ctx.Err()
		}
	}
}

func (s *Scanner) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrScanInProgress) && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("Maturity scan failed")
	}
}

// RunOnce performs a single scan. Only one scan runs at a time; a
// concurrent call returns ErrScanInProgress without touching the store.
// One plot failing does not stop the others.
func (s *Scanner) RunOnce(ctx context.Context) (ScanResult, error) {
	var res ScanResult
	if !s.running.CompareAndSwap(false, true) {
		metrics.RecordMaturityScanSkipped()
		return res, ErrScanInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	cutoff := garden.MaturityCutoff(s.cfg.Now(), s.cfg.Growth)
	plots, err := s.finder.FindMaturedUnnotified(ctx, cutoff)
	if err != nil {
		metrics.RecordMaturityScan(time.Since(start), 0, err)
		return res, fmt.Errorf("find matured plots: %w", err)
	}
	res.Found = len(plots)

	for _, plot := range plots {
		if ctx.Err() != nil {
			break
		}
		if s.emit(ctx, plot) {
			res.Emitted++
		} else {
			res.Failed++
		}
	}

	metrics.RecordMaturityScan(time.Since(start), res.Found, nil)
	if res.Found > 0 {
		s.logger.Info().Int("found", res.Found).Int("emitted", res.Emitted).Int("failed", res.Failed).
			Msg("Maturity scan finished")
	}
	return res, ctx.Err()
}

func (s *Scanner) emit(ctx context.Context, plot database.MaturedPlot) (ok bool) {
	log := s.logger.With().Int64("user_id", plot.UserID).Int("slot", plot.Slot).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Maturity notification panicked")
			ok = false
		}
	}()

	strategy, err := s.emitter.Emit(ctx, plot)
	if err != nil {
		log.Warn().Err(err).Str("strategy", strategy.String()).Msg("Maturity notification not sent")
		return false
	}
	return true
}
