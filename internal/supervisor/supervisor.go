// Package supervisor spawns the long-running child processes of a run,
// verifies each one survives its startup window, and guarantees that every
// process it ever started is terminated exactly once on the way out.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/tiltlab/bringup/internal/faults"
	"go.uber.org/zap"
)

// terminateTimeout bounds how long cleanup waits for a child to honor
// SIGTERM before escalating, and again after SIGKILL.
const terminateTimeout = 5 * time.Second

type Supervisor struct {
	registry *Registry

	log *zap.Logger
}

func New(log *zap.Logger) *Supervisor {
	return &Supervisor{
		registry: NewRegistry(),
		log:      log.Named("supervisor"),
	}
}

// Registry exposes the supervision registry, mainly for tests.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// Start spawns the child described by spec and registers it for cleanup.
// Registration happens at spawn time: even a child that later fails its
// grace check is the supervisor's to terminate.
func (s *Supervisor) Start(ctx context.Context, spec Spec) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.log.Info("starting process",
		zap.String("label", spec.Label),
		zap.String("command", spec.Cmd),
		zap.Strings("args", spec.Args),
	)

	p, err := startProc(spec, s.log.With(zap.String("label", spec.Label)))
	if err != nil {
		return nil, &faults.ToolError{Tool: spec.Label, Err: err}
	}

	h := &Handle{
		Label:     spec.Label,
		Pid:       p.pid,
		StartedAt: time.Now(),
		grace:     spec.Grace,
		proc:      p,
	}

	s.registry.Append(h)

	return h, nil
}

// Verify blocks out the remainder of the handle's grace window and fails
// with a ToolError, carrying any captured stderr, if the process exited
// before the window closed.
func (s *Supervisor) Verify(ctx context.Context, h *Handle) error {
	remaining := h.grace - time.Since(h.StartedAt)

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-h.proc.Done():
		return s.earlyExit(h, err)
	case <-timer.C:
		// the process survived its startup window
	}

	s.log.Info("process is up",
		zap.String("label", h.Label),
		zap.Int("pid", h.Pid),
	)

	return nil
}

// Wait blocks until the process behind h exits or ctx is cancelled. A
// non-zero exit is reported as a ToolError.
func (s *Supervisor) Wait(ctx context.Context, h *Handle) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-h.proc.Done():
		if err != nil {
			return &faults.ToolError{Tool: h.Label, Err: err, Stderr: h.proc.Stderr()}
		}
		return nil
	}
}

// Shutdown terminates every registered process in registry order and blocks
// until each has exited. It is safe to invoke more than once: handles are
// drained as they are processed, so no process is ever signalled twice.
// Shutdown never fails; a process that is already gone is a success.
func (s *Supervisor) Shutdown() {
	for _, h := range s.registry.Drain() {
		log := s.log.With(
			zap.String("label", h.Label),
			zap.Int("pid", h.Pid),
		)

		log.Info("terminating process")

		if err := h.proc.Terminate(terminateTimeout); err != nil {
			log.Warn("process did not terminate cleanly", zap.Error(err))
			continue
		}

		log.Info("process terminated")
	}
}

func (s *Supervisor) earlyExit(h *Handle, err error) error {
	if err == nil {
		err = errors.New("exited during startup")
	}

	return &faults.ToolError{Tool: h.Label, Err: err, Stderr: h.proc.Stderr()}
}
