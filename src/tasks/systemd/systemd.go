package systemd

import (
	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks"
	"github.com/jarvis-cd/jarvis/src/tasks/exec"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

const Type = "systemd"

const (
	Start        = "start"
	Stop         = "stop"
	Restart      = "restart"
	Enable       = "enable"
	Disable      = "disable"
	Status       = "status"
	DaemonReload = "daemon-reload"
)

// Command returns an idempotent shell command for an action on a unit.
// Starting an active unit or stopping an inactive one does nothing.
func Command(unit string, action string) (process.Command, error) {
	if unit == "" && action != DaemonReload {
		return process.Command{}, errors.Wrapf(tasks.ErrInvalidArgument, "systemd: no unit for %s", action)
	}

	u := shellquote.Join(unit)
	switch action {
	case Start:
		return process.Shell("systemctl is-active --quiet -- " + u + " || systemctl start -- " + u), nil
	case Stop:
		return process.Shell("! systemctl is-active --quiet -- " + u + " || systemctl stop -- " + u), nil
	case Restart:
		return process.Args("systemctl", "restart", "--", unit), nil
	case Enable:
		return process.Shell("systemctl is-enabled --quiet -- " + u + " || systemctl enable -- " + u), nil
	case Disable:
		return process.Shell("! systemctl is-enabled --quiet -- " + u + " || systemctl disable -- " + u), nil
	case Status:
		return process.Args("systemctl", "status", "--no-pager", "--", unit), nil
	case DaemonReload:
		return process.Args("systemctl", "daemon-reload"), nil
	}
	return process.Command{}, errors.Wrapf(tasks.ErrInvalidArgument, "systemd: invalid action: %s", action)
}

// New runs an action on a unit on every host.
func New(unit string, action string, opts exec.Options) (*exec.Task, error) {
	cmd, err := Command(unit, action)
	if err != nil {
		return nil, err
	}

	opts.Type = Type
	if opts.Name == "" {
		opts.Name = "systemctl " + action
		if action != DaemonReload {
			opts.Name += " " + unit
		}
	}
	return exec.New(cmd, &opts)
}
