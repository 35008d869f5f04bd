package remove

import (
	"path/filepath"
	"strings"

	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks"
	"github.com/jarvis-cd/jarvis/src/tasks/exec"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const Type = "remove"

// New recursively removes every path on every host.  Paths that do not
// exist are ignored.
func New(paths []string, opts exec.Options) (*exec.Task, error) {
	paths = lo.Filter(paths, func(path string, _ int) bool {
		return path != ""
	})
	if len(paths) == 0 {
		return nil, errors.Wrap(tasks.ErrInvalidArgument, "remove: no paths")
	}

	for _, path := range paths {
		if err := validate(path); err != nil {
			return nil, err
		}
	}

	opts.Type = Type
	if opts.Name == "" {
		opts.Name = "remove " + strings.Join(paths, " ")
	}

	argv := append([]string{"rm", "-rf", "--"}, paths...)
	return exec.New(process.Args(argv...), &opts)
}

func validate(path string) error {
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		return errors.Wrapf(tasks.ErrInvalidArgument, "remove: %s is not an absolute path", path)
	}
	if clean == string(filepath.Separator) || filepath.Dir(clean) == string(filepath.Separator) {
		return errors.Wrapf(tasks.ErrInvalidArgument, "remove: refusing to remove %s", path)
	}
	return nil
}
