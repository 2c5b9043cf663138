// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type fakeServer struct {
	listenErr error
	shutdown  atomic.Bool
	done      chan struct{}
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{listenErr: listenErr, done: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.done
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	close(f.done)
	return nil
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	srv := newFakeServer(nil)
	svc := NewHTTPServerService(srv, time.Second)
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return")
	}
	if !srv.shutdown.Load() {
		t.Error("Shutdown was not called")
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	svc := NewHTTPServerService(newFakeServer(errors.New("address in use")), 0)
	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("Serve() error = nil, want listen failure")
	}
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %s, want 10s default", svc.shutdownTimeout)
	}
}

type fakeRunner struct {
	err     error
	block   bool
	stopped atomic.Bool
}

func (f *fakeRunner) Run(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return nil
	}
	return f.err
}

func (f *fakeRunner) Stop() { f.stopped.Store(true) }

func TestRunnerService(t *testing.T) {
	t.Run("error is restartable", func(t *testing.T) {
		svc := NewRunnerService("planting-consumer", &fakeRunner{err: errors.New("subscribe failed")})
		err := svc.Serve(context.Background())
		if err == nil || errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() error = %v, want wrapped failure", err)
		}
	})

	t.Run("clean return is final", func(t *testing.T) {
		svc := NewRunnerService("maturity-consumer", &fakeRunner{})
		if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() error = %v, want ErrDoNotRestart", err)
		}
	})

	t.Run("cancel stops the runner", func(t *testing.T) {
		runner := &fakeRunner{block: true}
		svc := NewRunnerService("maturity-scanner", runner)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
		if !runner.stopped.Load() {
			t.Error("Stop was not called")
		}
		if svc.String() != "maturity-scanner" {
			t.Errorf("String() = %q", svc.String())
		}
	})
}
