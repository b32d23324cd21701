// Package clipboard delivers the Blender consumer script to the operator's
// clipboard so it can be pasted into Blender's script editor. Delivery is
// best effort: the relay walks a prioritized chain of clipboard tools for
// the active display server and degrades to a manual prompt when none of
// them is usable.
package clipboard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/tiltlab/bringup/internal/faults"
	"go.uber.org/zap"
)

type Config struct {
	// Script is the path of the script file whose text is relayed
	Script string `conf:"script"`
}

type tool struct {
	name string
	args []string
}

var (
	waylandTools = []tool{
		{name: "wl-copy"},
	}
	x11Tools = []tool{
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	}
)

// RunToolFn pipes text into a clipboard tool and blocks until it exits.
type RunToolFn func(ctx context.Context, text string, name string, args ...string) error

type Option func(*Relay)

func WithEnv(getenv func(string) string) Option {
	return func(r *Relay) {
		r.getenv = getenv
	}
}

func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(r *Relay) {
		r.lookPath = lookPath
	}
}

func WithRunner(run RunToolFn) Option {
	return func(r *Relay) {
		r.runTool = run
	}
}

func WithPrompt(in io.Reader, out io.Writer) Option {
	return func(r *Relay) {
		r.in = in
		r.out = out
	}
}

type Relay struct {
	config Config

	getenv   func(string) string
	lookPath func(string) (string, error)
	runTool  RunToolFn
	in       io.Reader
	out      io.Writer

	log *zap.Logger
}

func NewRelay(config Config, log *zap.Logger, opts ...Option) *Relay {
	r := &Relay{
		config:   config,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		runTool:  runClipboardTool,
		in:       os.Stdin,
		out:      os.Stdout,
		log:      log.Named("clipboard"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Deliver copies the script's text to the system clipboard. A missing
// script file is a ResourceError; missing or failing clipboard tools are
// not errors, they degrade delivery to manual mode, which prints the
// script's location and blocks until the operator acknowledges.
func (r *Relay) Deliver(ctx context.Context) error {
	text, err := os.ReadFile(r.config.Script)
	if err != nil {
		return &faults.ResourceError{Path: r.config.Script, Err: err}
	}

	for _, t := range r.candidates() {
		if _, err := r.lookPath(t.name); err != nil {
			continue
		}

		if err := r.runTool(ctx, string(text), t.name, t.args...); err != nil {
			r.log.Warn("clipboard tool failed",
				zap.String("tool", t.name),
				zap.Error(err),
			)
			continue
		}

		r.log.Info("script copied to clipboard",
			zap.String("tool", t.name),
			zap.String("script", r.config.Script),
		)

		return nil
	}

	return r.manual()
}

// candidates picks the tool chain for the active display server.
func (r *Relay) candidates() []tool {
	if r.getenv("WAYLAND_DISPLAY") != "" {
		return waylandTools
	}

	if r.getenv("DISPLAY") != "" {
		return x11Tools
	}

	return nil
}

func (r *Relay) manual() error {
	r.log.Info("no clipboard tool available, falling back to manual copy")

	fmt.Fprintf(r.out, "Could not copy %s to the clipboard.\n", r.config.Script)
	fmt.Fprintln(r.out, "Open the file and copy its contents into Blender yourself.")
	fmt.Fprint(r.out, "Press enter to continue... ")

	// block until the operator acknowledges; EOF counts as acknowledged
	if _, err := bufio.NewReader(r.in).ReadString('\n'); err != nil && err != io.EOF {
		return err
	}

	return nil
}

func runClipboardTool(ctx context.Context, text string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(text)

	return cmd.Run()
}
