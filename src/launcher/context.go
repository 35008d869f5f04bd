package launcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jarvis-cd/jarvis/src/configs"
	"github.com/jarvis-cd/jarvis/src/hosts"

	"github.com/illikainen/go-utils/src/errorx"
	"github.com/pkg/errors"
)

// HostfileVar names the environment variable that points commands at the
// resolved hostfile of a launcher.
const HostfileVar = "JARVIS_HOSTFILE"

// Context is what a provider is configured with.
type Context struct {
	Name       string
	Env        Env
	Config     *configs.Config
	ScratchDir string
	RunID      string
	Hostfile   string
}

// WriteHostfile stores the hosts of the package in the scratch directory,
// one per line, and records its path.
func (c *Context) WriteHostfile(h hosts.Hosts) (path string, err error) {
	path = filepath.Join(c.ScratchDir, "hostfile")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer errorx.Defer(f.Close, &err)

	data := strings.Join(h.List(), "\n") + "\n"
	n, err := f.WriteString(data)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if n != len(data) {
		return "", errors.Errorf("invalid write")
	}

	c.Hostfile = path
	return path, nil
}

// Environ is the environment that commands of the package run with.
func (c *Context) Environ() map[string]string {
	env := map[string]string{
		"JARVIS_PKG":     c.Name,
		"JARVIS_SCRATCH": c.ScratchDir,
		"JARVIS_RUN_ID":  c.RunID,
	}
	if c.Hostfile != "" {
		env[HostfileVar] = c.Hostfile
	}
	return env
}
