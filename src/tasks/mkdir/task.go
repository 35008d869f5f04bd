package mkdir

import (
	"fmt"
	"os"
	"strings"

	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks"
	"github.com/jarvis-cd/jarvis/src/tasks/exec"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const Type = "mkdir"

// New creates every path, including missing parents, on every host.  A
// zero mode leaves the permissions to the umask of the host.
func New(paths []string, mode os.FileMode, opts exec.Options) (*exec.Task, error) {
	paths = lo.Filter(paths, func(path string, _ int) bool {
		return path != ""
	})
	if len(paths) == 0 {
		return nil, errors.Wrap(tasks.ErrInvalidArgument, "mkdir: no paths")
	}

	argv := []string{"mkdir", "-p"}
	if mode != 0 {
		argv = append(argv, "-m", fmt.Sprintf("%o", mode.Perm()))
	}
	argv = append(argv, "--")
	argv = append(argv, paths...)

	opts.Type = Type
	if opts.Name == "" {
		opts.Name = "mkdir " + strings.Join(paths, " ")
	}

	return exec.New(process.Args(argv...), &opts)
}
