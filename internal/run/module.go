package run

import (
	"context"
	"errors"

	"github.com/tiltlab/bringup/internal/clipboard"
	"github.com/tiltlab/bringup/internal/device"
	"github.com/tiltlab/bringup/internal/faults"
	"github.com/tiltlab/bringup/internal/flash"
	"github.com/tiltlab/bringup/internal/supervisor"
	"github.com/tiltlab/bringup/util/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module assembles the runner and its collaborators for one run and wires
// them into the application lifecycle. Cleanup of spawned processes is an
// OnStop hook, so it fires on normal exit, on error, and on interrupt
// alike; idempotency of the supervisor makes double delivery harmless.
func Module(config Config) fx.Option {
	return fx.Module(
		"run",
		// provide the run config
		fx.Supply(config),
		// namespace the module's loggers
		logging.DecorateLogger("run"),
		fx.Provide(
			func(log *zap.Logger) Flasher {
				return flash.NewWorkflow(config.Flash, config.ForceFlash, log)
			},
			func(log *zap.Logger) Poller {
				return device.NewPoller(config.Device, log)
			},
			func(log *zap.Logger) Relay {
				return clipboard.NewRelay(config.Clipboard, log)
			},
			supervisor.New,
			func(s *supervisor.Supervisor) Spawner { return s },
			NewRunner,
		),
		fx.Invoke(register),
	)
}

func register(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	runner *Runner,
	sup *supervisor.Supervisor,
	ctx context.Context,
	log *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				err := runner.Run(ctx)

				code := 0
				switch {
				case err == nil:
					log.Info("run finished")
				case errors.Is(err, faults.ErrOperatorAbort):
					log.Info("run aborted by operator")
				case errors.Is(err, context.Canceled):
					code = 1
				default:
					log.Error("run failed", zap.Error(err))
					code = 1
				}

				shutdowner.Shutdown(fx.ExitCode(code))
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			sup.Shutdown()
			return nil
		},
	})
}
