package exec

import (
	"sync"

	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks"

	"github.com/pkg/errors"
)

const Type = "exec"

// Factory builds the command to run on one host.
type Factory func(host string) (process.Command, error)

type Options struct {
	Name string

	// Type labels the outputs of the task.  It defaults to "exec".
	Type string

	Hosts  hosts.Hosts
	SSH    *hosts.SSHInfo
	Policy process.Policy

	// Async makes Run return as soon as every host has been started.
	// The outputs are collected later with Wait.
	Async bool

	// FailFast turns a nonzero exit on any host into an error.
	FailFast bool

	DryRun bool
}

// Task runs a command on every host in parallel.
type Task struct {
	opts    Options
	factory Factory

	mu      sync.Mutex
	runners []*process.Runner
	started bool
}

func New(cmd process.Command, opts *Options) (*Task, error) {
	if cmd.IsZero() {
		return nil, errors.Wrap(tasks.ErrInvalidArgument, "empty command")
	}

	if opts.Name == "" {
		opts.Name = cmd.String()
	}

	return NewPerHost(func(string) (process.Command, error) {
		return cmd, nil
	}, opts)
}

func NewPerHost(factory Factory, opts *Options) (*Task, error) {
	if factory == nil {
		return nil, errors.Wrap(tasks.ErrInvalidArgument, "missing command factory")
	}

	if opts.Name == "" {
		return nil, errors.Wrap(tasks.ErrInvalidArgument, "missing task name")
	}

	if opts.Policy.MaxRetries < 0 || opts.Policy.RetryDelay < 0 {
		return nil, errors.Wrapf(tasks.ErrInvalidArgument, "%s: negative retry policy", opts.Name)
	}

	if opts.Type == "" {
		opts.Type = Type
	}

	if opts.Hosts.Len() == 0 {
		opts.Hosts = hosts.Localhost()
	}

	if err := opts.SSH.Validate(); err != nil {
		return nil, err
	}

	return &Task{
		opts:    *opts,
		factory: factory,
	}, nil
}

func (t *Task) Name() string {
	return t.opts.Name
}

func (t *Task) Hosts() hosts.Hosts {
	return t.opts.Hosts
}
