// Package flash drives the optional firmware build-and-flash step that may
// precede a run. The step is interactive unless forced: the operator is
// offered a ternary choice, and choosing to quit ends the whole run cleanly.
package flash

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tiltlab/bringup/internal/faults"
	"go.uber.org/zap"
)

type State int

const (
	StateNotAsked State = iota
	StatePrompted
	StateFlashing
	StateSkipped
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNotAsked:
		return "not-asked"
	case StatePrompted:
		return "prompted"
	case StateFlashing:
		return "flashing"
	case StateSkipped:
		return "skipped"
	case StateAborted:
		return "aborted"
	default:
		return "invalid"
	}
}

type answer int

const (
	answerNo answer = iota
	answerYes
	answerQuit
)

type Config struct {
	// Command is the external build-and-flash tool
	Command string `conf:"command"`

	// Args is the list of arguments to pass to the tool
	Args []string `conf:"args"`

	// Dir is the directory the tool is executed in,
	// usually the firmware crate root
	Dir string `conf:"dir"`

	// Settle is slept after a successful flash so the board
	// can re-enumerate before anything polls for it
	Settle time.Duration `conf:"settle"`
}

// RunCommandFn invokes the flash tool and blocks until it exits.
type RunCommandFn func(ctx context.Context, command string, args []string, dir string) error

// SleepFn pauses for d unless ctx is cancelled first.
type SleepFn func(ctx context.Context, d time.Duration) error

type Option func(*Workflow)

func WithPrompt(in io.Reader, out io.Writer) Option {
	return func(w *Workflow) {
		w.in = in
		w.out = out
	}
}

func WithRunner(run RunCommandFn) Option {
	return func(w *Workflow) {
		w.runCommand = run
	}
}

func WithSleep(sleep SleepFn) Option {
	return func(w *Workflow) {
		w.sleep = sleep
	}
}

type Workflow struct {
	config Config
	force  bool
	state  State

	in         io.Reader
	out        io.Writer
	runCommand RunCommandFn
	sleep      SleepFn

	log *zap.Logger
}

func NewWorkflow(config Config, force bool, log *zap.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		config:     config,
		force:      force,
		state:      StateNotAsked,
		in:         os.Stdin,
		out:        os.Stdout,
		runCommand: runFlashTool,
		sleep:      sleepFor,
		log:        log.Named("flash"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// State returns the terminal state the workflow reached. Only meaningful
// after Run has returned.
func (w *Workflow) State() State {
	return w.state
}

// Run drives the workflow to a terminal state. It returns ErrOperatorAbort
// when the operator chooses to quit, a ToolError when the flash tool fails,
// and nil when the firmware was flashed or the step was skipped.
func (w *Workflow) Run(ctx context.Context) error {
	if w.force {
		w.state = StateFlashing
		return w.flash(ctx)
	}

	w.state = StatePrompted

	switch w.ask() {
	case answerYes:
		w.state = StateFlashing
		return w.flash(ctx)
	case answerQuit:
		w.state = StateAborted
		return faults.ErrOperatorAbort
	default:
		// anything unrecognized skips the flash rather than re-asking
		w.state = StateSkipped
		w.log.Info("skipping firmware flash")
		return nil
	}
}

func (w *Workflow) ask() answer {
	fmt.Fprint(w.out, "Flash the firmware first? [y/N/q] ")

	line, err := bufio.NewReader(w.in).ReadString('\n')
	if err != nil && line == "" {
		return answerNo
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return answerYes
	case "q", "quit":
		return answerQuit
	default:
		return answerNo
	}
}

func (w *Workflow) flash(ctx context.Context) error {
	w.log.Info("flashing firmware",
		zap.String("command", w.config.Command),
		zap.Strings("args", w.config.Args),
		zap.String("dir", w.config.Dir),
	)

	if err := w.runCommand(ctx, w.config.Command, w.config.Args, w.config.Dir); err != nil {
		return &faults.ToolError{Tool: w.config.Command, Err: err}
	}

	w.log.Info("flash complete, waiting for the board to re-enumerate",
		zap.Duration("settle", w.config.Settle),
	)

	return w.sleep(ctx, w.config.Settle)
}

// runFlashTool runs the tool with the operator's terminal attached, as
// flashing tools report progress and may prompt on their own.
func runFlashTool(ctx context.Context, command string, args []string, dir string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
