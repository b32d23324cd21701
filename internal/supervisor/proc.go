package supervisor

import (
	"bytes"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type proc struct {
	pid         int
	termination chan error
	stderr      bytes.Buffer

	log *zap.Logger
}

func startProc(spec Spec, log *zap.Logger) (*proc, error) {
	cmd := exec.Command(spec.Cmd, spec.Args...)

	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}

	p := &proc{
		termination: make(chan error, 1),
	}

	// children are detached from the terminal: they read nothing,
	// and their stderr is captured for post-mortem diagnosis. Wait
	// synchronizes the capture with process exit, so the tail of a
	// dying child's stderr is never lost.
	cmd.Stdin = nil
	cmd.Stderr = &p.stderr

	// own process group, so a termination signal reaches any
	// grandchildren the process spawns
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p.pid = cmd.Process.Pid
	p.log = log.Named("proc").With(zap.Int("pid", cmd.Process.Pid))

	go func() {
		// block until the process exits

		// report the exit error to the caller
		p.termination <- cmd.Wait()

		// close the termination channel
		close(p.termination)
	}()

	return p, nil
}

// Done returns a channel that delivers the exit error when the process
// terminates and is closed afterwards.
func (p *proc) Done() <-chan error {
	return p.termination
}

// Stderr returns the captured stderr output. Only meaningful once the
// process has terminated.
func (p *proc) Stderr() string {
	return p.stderr.String()
}

// Terminate asks the process group to exit and blocks until it has. If the
// process ignores SIGTERM for timeout, it is killed outright. A process
// that is already gone is a success, not an error.
func (p *proc) Terminate(timeout time.Duration) error {
	select {
	case <-p.termination:
		p.log.Debug("process already terminated")
		return nil
	default:
		// continue
	}

	p.signal(syscall.SIGTERM)

	if err := p.waitForTermination(timeout); err == nil {
		return nil
	}

	p.log.Warn("process ignored SIGTERM, killing")

	p.signal(syscall.SIGKILL)

	return p.waitForTermination(timeout)
}

func (p *proc) waitForTermination(timeout time.Duration) error {
	// if timeout is 0, wait indefinitely
	if timeout == 0 {
		<-p.termination
		return nil
	}

	select {
	case <-p.termination:
		return nil
	case <-time.After(timeout):
		return ErrTerminateTimeout
	}
}

func (p *proc) signal(signal syscall.Signal) {
	p.log.Debug("sending signal", zap.Stringer("signal", signal))

	// best effort, ignore errors
	if err := p.sendSignal(signal); err != nil {
		p.log.Debug("signal failed", zap.Error(err))
	}
}

func (p *proc) sendSignal(signal syscall.Signal) error {
	if pgid, err := syscall.Getpgid(p.pid); err == nil {
		// Negative pid sends signal to all in process group
		return syscall.Kill(-pgid, signal)
	} else {
		return syscall.Kill(p.pid, signal)
	}
}
