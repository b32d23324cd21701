package run

import (
	"github.com/tiltlab/bringup/internal/clipboard"
	"github.com/tiltlab/bringup/internal/device"
	"github.com/tiltlab/bringup/internal/faults"
	"github.com/tiltlab/bringup/internal/flash"
	"github.com/tiltlab/bringup/internal/supervisor"
)

// Config is the configuration for one bring-up run. It is resolved once at
// startup and never mutated afterwards.
type Config struct {
	// ForceFlash runs the flash workflow without prompting
	ForceFlash bool `conf:"force_flash"`

	// Blender enables the Blender consumer: the forwarder gets the
	// --blender role flag and the Blender script is relayed to the
	// operator's clipboard
	Blender bool `conf:"blender"`

	// Visualizer enables the plot visualizer consumer
	Visualizer bool `conf:"visualizer"`

	// Device configures the readiness poll for the board's endpoint
	Device device.Config `conf:"device"`

	// Flash configures the external build-and-flash tool
	Flash flash.Config `conf:"flash"`

	// Clipboard configures the Blender script relay
	Clipboard clipboard.Config `conf:"clipboard"`

	// Forwarder describes how to launch the serial-to-TCP forwarder
	Forwarder supervisor.Spec `conf:"forwarder"`

	// Viewer describes how to launch the plot visualizer
	Viewer supervisor.Spec `conf:"viewer"`
}

// Validate rejects configurations that would start a forwarder with no
// consumer attached to it. It runs before any side effect occurs.
func (c Config) Validate() error {
	if !c.Blender && !c.Visualizer {
		return &faults.ConfigError{
			Reason: "at least one of --blender or --visualizer must be enabled",
		}
	}

	return nil
}

// ForwarderArgs derives the forwarder's argument list: any configured base
// arguments, the device port, and one role flag per enabled consumer.
func (c Config) ForwarderArgs() []string {
	args := append([]string{}, c.Forwarder.Args...)
	args = append(args, "--port", c.Device.Port)

	if c.Blender {
		args = append(args, "--blender")
	}

	if c.Visualizer {
		args = append(args, "--visualizer")
	}

	return args
}
