package config

import (
	"github.com/tiltlab/bringup/internal/run"
	"github.com/tiltlab/bringup/util/conf"
)

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Run is the bring-up run configuration
	Run run.Config `conf:"run"`
}

// runDefaults mirrors the layout of the rig checked out next to the
// binary: firmware in board/, the forwarder binary under bridge/, and
// the two consumer scripts at the repo root.
var runDefaults = conf.DefaultConfig{
	"device.port":     "/dev/ttyACM0",
	"device.timeout":  "30s",
	"device.interval": "500ms",
	"device.settle":   "1s",

	"flash.command": "cargo",
	"flash.args":    []string{"embed", "--release"},
	"flash.dir":     "board",
	"flash.settle":  "2s",

	"clipboard.script": "blender.py",

	"forwarder.label": "forwarder",
	"forwarder.cmd":   "bridge/target/release/bridge",
	"forwarder.grace": "1s",

	"viewer.label": "visualizer",
	"viewer.cmd":   "python3",
	"viewer.args":  []string{"visualization.py"},
	"viewer.grace": "3s",
}

var DefaultConfig = func() conf.DefaultConfig {
	defaults := conf.MergeDefaults("run", runDefaults)

	defaults["log_level"] = "info"
	defaults["log_format"] = "production"

	return defaults
}()
