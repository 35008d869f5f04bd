package launcher

import (
	"github.com/jarvis-cd/jarvis/src/tasks"

	"github.com/pkg/errors"
)

// Provider defines the tasks of each lifecycle phase of a package.  The
// launcher calls Configure once and then asks for a fresh task list every
// time a phase runs.
type Provider interface {
	Name() string
	Configure(ctx *Context) error
	DefineInit() (tasks.Tasks, error)
	DefineStart() (tasks.Tasks, error)
	DefineStop() (tasks.Tasks, error)
	DefineClean() (tasks.Tasks, error)
	DefineStatus() (tasks.Tasks, error)
}

// Scaffolder is implemented by providers that ship a default
// configuration.
type Scaffolder interface {
	DefaultConfig() (name string, data []byte)
}

var providers = map[string]func() (Provider, error){}

func Register(name string, fun func() (Provider, error)) error {
	if _, ok := providers[name]; ok {
		return errors.Errorf("%s is already registered", name)
	}

	providers[name] = fun
	return nil
}

func Lookup(name string) (Provider, error) {
	fun, ok := providers[name]
	if !ok {
		return nil, errors.Errorf("%s is not a valid package type", name)
	}

	return fun()
}

func define(p Provider, phase Phase) (tasks.Tasks, error) {
	switch phase {
	case Init:
		return p.DefineInit()
	case Start:
		return p.DefineStart()
	case Stop:
		return p.DefineStop()
	case Clean:
		return p.DefineClean()
	case Status:
		return p.DefineStatus()
	}
	return nil, errors.Errorf("%s is not a primitive phase", phase)
}
