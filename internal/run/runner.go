// Package run sequences a bring-up: flash the firmware if asked, wait for
// the device endpoint, relay the Blender script, spawn the forwarder and
// any enabled visualizer, verify both survive their startup windows, then
// block for the forwarder's lifetime.
package run

import (
	"context"

	"github.com/tiltlab/bringup/internal/supervisor"
	"go.uber.org/zap"
)

// Flasher drives the optional firmware flash step.
type Flasher interface {
	Run(ctx context.Context) error
}

// Poller blocks until the device endpoint is ready.
type Poller interface {
	Wait(ctx context.Context) error
}

// Relay delivers the Blender script to the operator's clipboard.
type Relay interface {
	Deliver(ctx context.Context) error
}

// Spawner spawns, verifies and waits on child processes.
type Spawner interface {
	Start(ctx context.Context, spec supervisor.Spec) (*supervisor.Handle, error)
	Verify(ctx context.Context, h *supervisor.Handle) error
	Wait(ctx context.Context, h *supervisor.Handle) error
}

type Runner struct {
	config  Config
	flasher Flasher
	poller  Poller
	relay   Relay
	spawner Spawner

	log *zap.Logger
}

func NewRunner(
	config Config,
	flasher Flasher,
	poller Poller,
	relay Relay,
	spawner Spawner,
	log *zap.Logger,
) *Runner {
	return &Runner{
		config:  config,
		flasher: flasher,
		poller:  poller,
		relay:   relay,
		spawner: spawner,
		log:     log,
	}
}

// Run executes one bring-up. Any error aborts the run; terminating what was
// already spawned is not Run's job but the supervisor's, whose Shutdown is
// guaranteed to fire on every exit path.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.flasher.Run(ctx); err != nil {
		return err
	}

	if err := r.poller.Wait(ctx); err != nil {
		return err
	}

	if r.config.Blender {
		if err := r.relay.Deliver(ctx); err != nil {
			return err
		}
	}

	forwarderSpec := r.config.Forwarder
	forwarderSpec.Args = r.config.ForwarderArgs()

	forwarder, err := r.spawner.Start(ctx, forwarderSpec)
	if err != nil {
		return err
	}

	var viewer *supervisor.Handle
	if r.config.Visualizer {
		if viewer, err = r.spawner.Start(ctx, r.config.Viewer); err != nil {
			return err
		}
	}

	if err := r.spawner.Verify(ctx, forwarder); err != nil {
		return err
	}

	if viewer != nil {
		if err := r.spawner.Verify(ctx, viewer); err != nil {
			return err
		}
	}

	r.log.Info("all processes up, run lasts until the forwarder exits")

	return r.spawner.Wait(ctx, forwarder)
}
