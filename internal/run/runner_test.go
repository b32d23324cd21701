package run

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiltlab/bringup/internal/clipboard"
	"github.com/tiltlab/bringup/internal/device"
	"github.com/tiltlab/bringup/internal/faults"
	"github.com/tiltlab/bringup/internal/flash"
	"github.com/tiltlab/bringup/internal/supervisor"
	"go.uber.org/zap"
)

type stubFlasher struct {
	calls int
	err   error
}

func (f *stubFlasher) Run(context.Context) error {
	f.calls++
	return f.err
}

type stubPoller struct {
	calls int
	err   error
}

func (p *stubPoller) Wait(context.Context) error {
	p.calls++
	return p.err
}

type stubRelay struct {
	calls int
	err   error
}

func (r *stubRelay) Deliver(context.Context) error {
	r.calls++
	return r.err
}

type stubSpawner struct {
	started   []supervisor.Spec
	verified  []string
	waited    []string
	startErr  map[string]error
	verifyErr map[string]error
	waitErr   error
}

func (s *stubSpawner) Start(_ context.Context, spec supervisor.Spec) (*supervisor.Handle, error) {
	if err := s.startErr[spec.Label]; err != nil {
		return nil, err
	}

	s.started = append(s.started, spec)

	return &supervisor.Handle{Label: spec.Label}, nil
}

func (s *stubSpawner) Verify(_ context.Context, h *supervisor.Handle) error {
	s.verified = append(s.verified, h.Label)
	return s.verifyErr[h.Label]
}

func (s *stubSpawner) Wait(_ context.Context, h *supervisor.Handle) error {
	s.waited = append(s.waited, h.Label)
	return s.waitErr
}

func testConfig() Config {
	return Config{
		Device: device.Config{
			Port:    "/dev/ttyACM0",
			Timeout: 30 * time.Second,
		},
		Flash:     flash.Config{Command: "cargo"},
		Clipboard: clipboard.Config{Script: "blender.py"},
		Forwarder: supervisor.Spec{Label: "forwarder", Cmd: "bridge"},
		Viewer:    supervisor.Spec{Label: "visualizer", Cmd: "python3", Args: []string{"visualization.py"}},
	}
}

func newTestRunner(config Config, flasher *stubFlasher, poller *stubPoller, relay *stubRelay, spawner *stubSpawner) *Runner {
	return NewRunner(config, flasher, poller, relay, spawner, zap.NewNop())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name       string
		blender    bool
		visualizer bool
		wantErr    bool
	}{
		{name: "neither target", wantErr: true},
		{name: "blender only", blender: true},
		{name: "visualizer only", visualizer: true},
		{name: "both targets", blender: true, visualizer: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Blender = tt.blender
			cfg.Visualizer = tt.visualizer

			err := cfg.Validate()

			if tt.wantErr {
				var cfgErr *faults.ConfigError
				assert.ErrorAs(t, err, &cfgErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ForwarderArgs(t *testing.T) {
	cfg := testConfig()
	cfg.Blender = true
	cfg.Visualizer = true

	args := cfg.ForwarderArgs()
	assert.Equal(t, []string{"--port", "/dev/ttyACM0", "--blender", "--visualizer"}, args)

	cfg.Blender = false
	args = cfg.ForwarderArgs()
	assert.Equal(t, []string{"--port", "/dev/ttyACM0", "--visualizer"}, args)
}

func TestRunner_Run_VisualizerOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Visualizer = true

	flasher := &stubFlasher{}
	poller := &stubPoller{}
	relay := &stubRelay{}
	spawner := &stubSpawner{}

	r := newTestRunner(cfg, flasher, poller, relay, spawner)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 1, flasher.calls)
	assert.Equal(t, 1, poller.calls)

	// the relay only runs for the Blender target
	assert.Zero(t, relay.calls)

	require.Len(t, spawner.started, 2)
	assert.Equal(t, "forwarder", spawner.started[0].Label)
	assert.Equal(t, []string{"--port", "/dev/ttyACM0", "--visualizer"}, spawner.started[0].Args)
	assert.Equal(t, "visualizer", spawner.started[1].Label)

	assert.Equal(t, []string{"forwarder", "visualizer"}, spawner.verified)
	assert.Equal(t, []string{"forwarder"}, spawner.waited)
}

func TestRunner_Run_BlenderOnlyRelaysScript(t *testing.T) {
	cfg := testConfig()
	cfg.Blender = true

	relay := &stubRelay{}
	spawner := &stubSpawner{}

	r := newTestRunner(cfg, &stubFlasher{}, &stubPoller{}, relay, spawner)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 1, relay.calls)

	// no visualizer process, only the forwarder
	require.Len(t, spawner.started, 1)
	assert.Equal(t, []string{"--port", "/dev/ttyACM0", "--blender"}, spawner.started[0].Args)
}

func TestRunner_Run_OperatorAbortStopsBeforePolling(t *testing.T) {
	cfg := testConfig()
	cfg.Blender = true
	cfg.Visualizer = true

	flasher := &stubFlasher{err: faults.ErrOperatorAbort}
	poller := &stubPoller{}
	spawner := &stubSpawner{}

	r := newTestRunner(cfg, flasher, poller, &stubRelay{}, spawner)

	assert.ErrorIs(t, r.Run(context.Background()), faults.ErrOperatorAbort)
	assert.Zero(t, poller.calls)
	assert.Empty(t, spawner.started)
}

func TestRunner_Run_DeviceTimeoutSpawnsNothing(t *testing.T) {
	cfg := testConfig()
	cfg.Visualizer = true

	poller := &stubPoller{err: &faults.EnvironmentError{Port: cfg.Device.Port, Timeout: cfg.Device.Timeout}}
	spawner := &stubSpawner{}

	r := newTestRunner(cfg, &stubFlasher{}, poller, &stubRelay{}, spawner)

	var envErr *faults.EnvironmentError
	assert.ErrorAs(t, r.Run(context.Background()), &envErr)
	assert.Empty(t, spawner.started)
}

func TestRunner_Run_ForwarderDiesDuringGrace(t *testing.T) {
	cfg := testConfig()
	cfg.Visualizer = true

	spawner := &stubSpawner{
		verifyErr: map[string]error{
			"forwarder": &faults.ToolError{Tool: "forwarder", Err: errors.New("exited during startup")},
		},
	}

	r := newTestRunner(cfg, &stubFlasher{}, &stubPoller{}, &stubRelay{}, spawner)

	var toolErr *faults.ToolError
	assert.ErrorAs(t, r.Run(context.Background()), &toolErr)
	assert.Equal(t, "forwarder", toolErr.Tool)

	// the visualizer was already spawned when the forwarder failed its
	// check; terminating it is the supervisor's job, not the runner's
	require.Len(t, spawner.started, 2)
	assert.Equal(t, []string{"forwarder"}, spawner.verified)
}

func TestRunner_Run_VisualizerSpawnFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Visualizer = true

	spawner := &stubSpawner{
		startErr: map[string]error{
			"visualizer": &faults.ToolError{Tool: "visualizer", Err: errors.New("no such file")},
		},
	}

	r := newTestRunner(cfg, &stubFlasher{}, &stubPoller{}, &stubRelay{}, spawner)

	var toolErr *faults.ToolError
	assert.ErrorAs(t, r.Run(context.Background()), &toolErr)
	assert.Equal(t, "visualizer", toolErr.Tool)
	assert.Empty(t, spawner.verified)
}
