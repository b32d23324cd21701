// Package device waits for the board's host-side communication endpoint
// to appear after power-up or re-enumeration.
package device

import (
	"context"
	"os"
	"time"

	"github.com/tiltlab/bringup/internal/faults"
	"go.uber.org/zap"
)

type Config struct {
	// Port is the device endpoint to wait for
	Port string `conf:"port"`

	// Timeout bounds the whole wait
	Timeout time.Duration `conf:"timeout"`

	// Interval is the delay between existence probes
	Interval time.Duration `conf:"interval"`

	// Settle is slept once the endpoint exists, to let the
	// device finish initializing before anything opens it
	Settle time.Duration `conf:"settle"`
}

// Clock abstracts time for the poller so that tests do not sleep.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// StatFn probes for the existence of a path.
type StatFn func(path string) error

type Option func(*Poller)

func WithClock(clock Clock) Option {
	return func(p *Poller) {
		p.clock = clock
	}
}

func WithStat(stat StatFn) Option {
	return func(p *Poller) {
		p.stat = stat
	}
}

type Poller struct {
	config Config
	clock  Clock
	stat   StatFn

	log *zap.Logger
}

func NewPoller(config Config, log *zap.Logger, opts ...Option) *Poller {
	p := &Poller{
		config: config,
		clock:  systemClock{},
		stat: func(path string) error {
			_, err := os.Stat(path)
			return err
		},
		log: log.Named("device"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Wait blocks until the device endpoint exists or the timeout elapses.
// Reaching the deadline without the endpoint is a timeout, even when the
// endpoint would have been found by a probe at exactly that instant.
func (p *Poller) Wait(ctx context.Context) error {
	deadline := p.clock.Now().Add(p.config.Timeout)

	p.log.Info("waiting for device",
		zap.String("port", p.config.Port),
		zap.Duration("timeout", p.config.Timeout),
	)

	for {
		if !p.clock.Now().Before(deadline) {
			return &faults.EnvironmentError{
				Port:    p.config.Port,
				Timeout: p.config.Timeout,
			}
		}

		if err := p.stat(p.config.Port); err == nil {
			p.log.Info("device found",
				zap.String("port", p.config.Port),
				zap.Duration("settle", p.config.Settle),
			)

			// give the device time to finish enumerating
			return p.sleep(ctx, p.config.Settle)
		}

		if err := p.sleep(ctx, p.config.Interval); err != nil {
			return err
		}
	}
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	// a cancelled context wins over an elapsed timer
	if err := ctx.Err(); err != nil {
		return err
	}

	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}
