package supervisor

import (
	"errors"
	"time"
)

var ErrTerminateTimeout = errors.New("terminate timeout")

// Spec describes one child process to spawn.
type Spec struct {
	// Label identifies the role of the process (forwarder, visualizer)
	Label string `conf:"label"`

	// Cmd is the path or name of the binary to execute
	Cmd string `conf:"cmd"`

	// Args is the list of arguments to pass to the command
	Args []string `conf:"args"`

	// Dir is the working directory in which
	// the binary should be executed
	Dir string `conf:"dir"`

	// Grace is how long the process must survive after spawning
	// before it is considered up
	Grace time.Duration `conf:"grace"`
}

// Handle represents one spawned child process. Handles are created by the
// supervisor when a spawn succeeds and removed only when the registry is
// drained during cleanup.
type Handle struct {
	Label     string
	Pid       int
	StartedAt time.Time

	grace time.Duration
	proc  *proc
}
