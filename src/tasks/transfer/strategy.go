package transfer

import (
	"context"

	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/pkg/errors"
)

const (
	SFTP  = "sftp"
	SCP   = "scp"
	Local = "local"
)

// Strategy copies a plan to a set of hosts.  Failures are reported in the
// output of the affected host and never abort other hosts.
type Strategy interface {
	Copy(ctx context.Context, plan *Plan, hosts []string) outputs.Outputs
}

var strategies = map[string]func(*Options) (Strategy, error){}

func Register(name string, fun func(*Options) (Strategy, error)) error {
	if _, ok := strategies[name]; ok {
		return errors.Errorf("%s is already registered", name)
	}

	strategies[name] = fun
	return nil
}

func Lookup(name string, opts *Options) (Strategy, error) {
	fun, ok := strategies[name]
	if !ok {
		return nil, errors.Errorf("%s is not a valid transfer method", name)
	}

	return fun(opts)
}
