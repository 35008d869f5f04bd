package symlink

import (
	"fmt"
	"path/filepath"

	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks"
	"github.com/jarvis-cd/jarvis/src/tasks/exec"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

const Type = "symlink"

// New points link at target on every host.  Missing parents of link are
// created and a link that already points at target is left alone.
func New(target string, link string, opts exec.Options) (*exec.Task, error) {
	if target == "" {
		return nil, errors.Wrap(tasks.ErrInvalidArgument, "symlink: no target")
	}
	if !filepath.IsAbs(link) || filepath.Clean(link) == "/" {
		return nil, errors.Wrapf(tasks.ErrInvalidArgument, "symlink: %q is not a valid link", link)
	}

	t := shellquote.Join(target)
	l := shellquote.Join(filepath.Clean(link))
	script := fmt.Sprintf(`[ "$(readlink -- %s)" = %s ] || { mkdir -p -- %s && ln -sfn -- %s %s; }`,
		l, t, shellquote.Join(filepath.Dir(link)), t, l)

	opts.Type = Type
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("symlink %s -> %s", link, target)
	}

	return exec.New(process.Shell(script), &opts)
}
