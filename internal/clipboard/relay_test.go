package clipboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiltlab/bringup/internal/faults"
	"go.uber.org/zap"
)

func writeScript(t *testing.T) (string, string) {
	t.Helper()

	text := "import bpy\n"
	path := filepath.Join(t.TempDir(), "blender.py")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	return path, text
}

func envWith(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

func available(names ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, n := range names {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

type toolRecorder struct {
	name string
	args []string
	text string
	err  error
}

func (r *toolRecorder) run(_ context.Context, text string, name string, args ...string) error {
	r.name = name
	r.args = args
	r.text = text

	return r.err
}

func TestRelay_Deliver_MissingScript(t *testing.T) {
	r := NewRelay(Config{Script: "no/such/script.py"}, zap.NewNop())

	err := r.Deliver(context.Background())
	assert.Error(t, err)

	var resErr *faults.ResourceError
	assert.ErrorAs(t, err, &resErr)
	assert.Equal(t, "no/such/script.py", resErr.Path)
}

func TestRelay_Deliver_WaylandTool(t *testing.T) {
	script, text := writeScript(t)
	tool := &toolRecorder{}

	r := NewRelay(Config{Script: script}, zap.NewNop(),
		WithEnv(envWith(map[string]string{"WAYLAND_DISPLAY": "wayland-0"})),
		WithLookPath(available("wl-copy")),
		WithRunner(tool.run),
	)

	assert.NoError(t, r.Deliver(context.Background()))
	assert.Equal(t, "wl-copy", tool.name)
	assert.Equal(t, text, tool.text)
}

func TestRelay_Deliver_X11FallsBackToSecondaryTool(t *testing.T) {
	script, _ := writeScript(t)
	tool := &toolRecorder{}

	r := NewRelay(Config{Script: script}, zap.NewNop(),
		WithEnv(envWith(map[string]string{"DISPLAY": ":0"})),
		WithLookPath(available("xsel")),
		WithRunner(tool.run),
	)

	assert.NoError(t, r.Deliver(context.Background()))
	assert.Equal(t, "xsel", tool.name)
	assert.Equal(t, []string{"--clipboard", "--input"}, tool.args)
}

func TestRelay_Deliver_X11PrefersPrimaryTool(t *testing.T) {
	script, _ := writeScript(t)
	tool := &toolRecorder{}

	r := NewRelay(Config{Script: script}, zap.NewNop(),
		WithEnv(envWith(map[string]string{"DISPLAY": ":0"})),
		WithLookPath(available("xclip", "xsel")),
		WithRunner(tool.run),
	)

	assert.NoError(t, r.Deliver(context.Background()))
	assert.Equal(t, "xclip", tool.name)
	assert.Equal(t, []string{"-selection", "clipboard"}, tool.args)
}

func TestRelay_Deliver_ToolFailureDegradesToManual(t *testing.T) {
	script, _ := writeScript(t)
	tool := &toolRecorder{err: errors.New("broken pipe")}
	out := &strings.Builder{}

	r := NewRelay(Config{Script: script}, zap.NewNop(),
		WithEnv(envWith(map[string]string{"DISPLAY": ":0"})),
		WithLookPath(available("xclip")),
		WithRunner(tool.run),
		WithPrompt(strings.NewReader("\n"), out),
	)

	assert.NoError(t, r.Deliver(context.Background()))
	assert.Contains(t, out.String(), script)
}

func TestRelay_Deliver_NoDisplayServerIsManual(t *testing.T) {
	script, _ := writeScript(t)
	out := &strings.Builder{}

	r := NewRelay(Config{Script: script}, zap.NewNop(),
		WithEnv(envWith(nil)),
		WithLookPath(available()),
		WithPrompt(strings.NewReader(""), out),
	)

	// EOF on the acknowledgment prompt still completes delivery
	assert.NoError(t, r.Deliver(context.Background()))
	assert.Contains(t, out.String(), "Press enter to continue")
}
