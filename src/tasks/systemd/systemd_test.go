package systemd

import (
	"testing"

	"github.com/jarvis-cd/jarvis/src/tasks"
	"github.com/jarvis-cd/jarvis/src/tasks/exec"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{Start, "systemctl is-active --quiet -- app.service || systemctl start -- app.service"},
		{Stop, "! systemctl is-active --quiet -- app.service || systemctl stop -- app.service"},
		{Restart, "systemctl restart -- app.service"},
		{Enable, "systemctl is-enabled --quiet -- app.service || systemctl enable -- app.service"},
		{Status, "systemctl status --no-pager -- app.service"},
	}

	for _, test := range tests {
		cmd, err := Command("app.service", test.action)
		require.NoError(t, err)
		assert.Equal(t, test.want, cmd.String(), test.action)
	}

	cmd, err := Command("", DaemonReload)
	require.NoError(t, err)
	assert.Equal(t, "systemctl daemon-reload", cmd.String())
}

func TestCommandQuotesUnit(t *testing.T) {
	cmd, err := Command("evil; rm -rf /", Start)
	require.NoError(t, err)
	assert.True(t, cmd.IsShell())
	assert.NotContains(t, cmd.Script(), "-- evil; rm")
}

func TestInvalid(t *testing.T) {
	_, err := Command("app", "explode")
	assert.True(t, errors.Is(err, tasks.ErrInvalidArgument))

	_, err = Command("", Start)
	assert.True(t, errors.Is(err, tasks.ErrInvalidArgument))

	task, err := New("app.service", Start, exec.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "systemctl start app.service", task.Name())
}
