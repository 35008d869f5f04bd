package launcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jarvis-cd/jarvis/src/configs"

	"github.com/google/uuid"
	"github.com/illikainen/go-utils/src/errorx"
	"github.com/illikainen/go-utils/src/iofs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var configNames = []string{"default.hcl", "default.toml"}

// Launcher runs the lifecycle phases of one package.  It owns the scratch
// directory of the package for as long as it exists.
type Launcher struct {
	ctx      *Context
	provider Provider
}

// New loads the configuration of the package, recreates its scratch
// directory and configures the provider.  Configuration errors abort
// before any task runs.
func New(env Env, name string, provider Provider, override string) (*Launcher, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, errors.Errorf("%q is not a valid package name", name)
	}

	path, err := DefaultConfigPath(env, name)
	if err != nil {
		return nil, err
	}

	config, err := configs.Load(path, override)
	if err != nil {
		return nil, err
	}

	scratch := filepath.Join(env.TmpDir, name)
	err = os.RemoveAll(scratch)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	err = os.MkdirAll(scratch, 0700)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	ctx := &Context{
		Name:       name,
		Env:        env,
		Config:     config,
		ScratchDir: scratch,
		RunID:      uuid.NewString(),
	}
	log.Debugf("%s: run %s, scratch directory %s", name, ctx.RunID, scratch)

	err = provider.Configure(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}

	return &Launcher{ctx: ctx, provider: provider}, nil
}

// DefaultConfigPath locates the default configuration of a package.
func DefaultConfigPath(env Env, name string) (string, error) {
	for _, file := range configNames {
		path := filepath.Join(env.PackageDir(name), file)
		exists, err := iofs.Exists(path)
		if err != nil {
			return "", err
		}
		if exists {
			return path, nil
		}
	}

	return "", errors.Wrapf(configs.ErrMissing, "no %s in %s", strings.Join(configNames, " or "),
		env.PackageDir(name))
}

func (l *Launcher) Context() *Context {
	return l.ctx
}

// Run executes the tasks of a phase in order.  The first task that fails
// stops the phase.  The results of every task that ran are returned along
// with the error.
func (l *Launcher) Run(ctx context.Context, phase Phase) (Results, error) {
	results := Results{}

	for _, p := range phase.Expand() {
		ts, err := define(l.provider, p)
		if err != nil {
			return results, errors.Wrapf(err, "%s: %s", l.ctx.Name, p)
		}
		log.Infof("%s: %s (%d tasks)", l.ctx.Name, p, len(ts))

		for _, task := range ts {
			log.Debugf("%s: %s: %s", l.ctx.Name, p, task.Name())

			outs, err := task.Run(ctx)
			results = append(results, &TaskResult{
				Phase:   p,
				Name:    task.Name(),
				Outputs: outs,
				Err:     err,
			})
			if err != nil {
				return results, errors.Wrapf(err, "%s: %s: %s", l.ctx.Name, p, task.Name())
			}
		}
	}

	return results, nil
}

func (l *Launcher) Init(ctx context.Context) (Results, error) {
	return l.Run(ctx, Init)
}

func (l *Launcher) Start(ctx context.Context) (Results, error) {
	return l.Run(ctx, Start)
}

func (l *Launcher) Stop(ctx context.Context) (Results, error) {
	return l.Run(ctx, Stop)
}

func (l *Launcher) Clean(ctx context.Context) (Results, error) {
	return l.Run(ctx, Clean)
}

func (l *Launcher) Restart(ctx context.Context) (Results, error) {
	return l.Run(ctx, Restart)
}

func (l *Launcher) Reset(ctx context.Context) (Results, error) {
	return l.Run(ctx, Reset)
}

func (l *Launcher) Status(ctx context.Context) (Results, error) {
	return l.Run(ctx, Status)
}

// Scaffold writes the default configuration of a provider into the
// directory of a package.
func Scaffold(env Env, name string, provider Provider, force bool) (path string, err error) {
	scaffolder, ok := provider.(Scaffolder)
	if !ok {
		return "", errors.Errorf("%s has no default configuration", provider.Name())
	}

	file, data := scaffolder.DefaultConfig()
	path = filepath.Join(env.PackageDir(name), file)

	if !force {
		if existing, err := DefaultConfigPath(env, name); err == nil {
			return "", errors.Errorf("%s already exists", existing)
		}
	}

	err = os.MkdirAll(env.PackageDir(name), 0700)
	if err != nil {
		return "", errors.WithStack(err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer errorx.Defer(f.Close, &err)

	n, err := f.Write(data)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if n != len(data) {
		return "", errors.Errorf("invalid write")
	}

	log.Infof("%s: wrote %s", name, path)
	return path, nil
}
