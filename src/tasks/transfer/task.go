package transfer

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks"
	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const Type = "copy"

type Options struct {
	Name  string
	Hosts hosts.Hosts
	SSH   *hosts.SSHInfo

	// Method selects the strategy for remote hosts.  Local hosts are
	// always written to directly.
	Method string

	// Policy is used by strategies that shell out.
	Policy process.Policy

	DirMode os.FileMode
	DryRun  bool
}

// Task copies local files and directories to every host.
type Task struct {
	plan *Plan
	opts Options
}

func New(sources []string, dst string, opts *Options) (*Task, error) {
	plan, err := NewPlan(sources, dst)
	if err != nil {
		return nil, err
	}
	return NewFromPlan(plan, opts)
}

func NewFromPlan(plan *Plan, opts *Options) (*Task, error) {
	if plan == nil || len(plan.Entries) == 0 {
		return nil, errors.Wrap(tasks.ErrInvalidArgument, "empty copy plan")
	}

	if opts.Method == "" {
		opts.Method = SFTP
	}
	if _, ok := strategies[opts.Method]; !ok || opts.Method == Local {
		return nil, errors.Wrapf(tasks.ErrInvalidArgument, "%s is not a valid transfer method", opts.Method)
	}

	if opts.Hosts.Len() == 0 {
		opts.Hosts = hosts.Localhost()
	}

	if int(opts.DirMode) == 0 {
		opts.DirMode = 0755
	}

	if opts.Name == "" {
		opts.Name = "copy " + strings.Join(sourcesOf(plan), " ")
	}

	if err := opts.SSH.Validate(); err != nil {
		return nil, err
	}

	return &Task{
		plan: plan,
		opts: *opts,
	}, nil
}

func (t *Task) Name() string {
	return t.opts.Name
}

func (t *Task) Plan() *Plan {
	return t.plan
}

// Hosts returns the hosts the plan is copied to.  The local host and its
// aliases are left out when the plan would copy a path onto itself.
func (t *Task) Hosts() hosts.Hosts {
	if !t.plan.SelfCopy {
		return t.opts.Hosts
	}

	effective := t.opts.Hosts.WithoutLocal()
	if effective.Len() != t.opts.Hosts.Len() {
		log.Infof("%s: excluding the local host, source and destination are the same path",
			t.opts.Name)
	}
	return effective
}

func (t *Task) Run(ctx context.Context) (outputs.Outputs, error) {
	effective := t.Hosts()
	outs := outputs.Outputs{}

	if t.opts.DryRun {
		for _, host := range effective.List() {
			log.Infof("%s: would copy %d entries", host, len(t.plan.Entries))
			outs.Add(outputs.Done(Type, t.opts.Name, host, nil))
		}
		return outs, nil
	}

	var local, remote []string
	for _, host := range effective.List() {
		if effective.IsLocal(host) {
			local = append(local, host)
		} else {
			remote = append(remote, host)
		}
	}

	mu := sync.Mutex{}
	g := errgroup.Group{}

	for _, group := range []struct {
		method string
		hosts  []string
	}{{Local, local}, {t.opts.Method, remote}} {
		if len(group.hosts) == 0 {
			continue
		}

		strategy, err := Lookup(group.method, &t.opts)
		if err != nil {
			return nil, err
		}

		group := group
		g.Go(func() error {
			result := strategy.Copy(ctx, t.plan, group.hosts)

			mu.Lock()
			defer mu.Unlock()
			outs = outs.Merge(result)
			return nil
		})
	}
	_ = g.Wait()

	if err := newError(outs); err != nil {
		return outs, errors.WithStack(err)
	}
	return outs, nil
}

func sourcesOf(plan *Plan) []string {
	srcs := []string{}
	for _, root := range plan.Roots {
		srcs = append(srcs, root.Src)
	}
	return srcs
}
