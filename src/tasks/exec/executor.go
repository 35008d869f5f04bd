package exec

import (
	"context"
	"sync"

	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Start launches the command on every host without waiting for any of
// them.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return errors.Errorf("%s: already started", t.opts.Name)
	}
	t.started = true

	for _, host := range t.opts.Hosts.List() {
		cmd, err := t.factory(host)
		if err != nil {
			t.killLocked()
			return errors.Wrapf(err, "%s: %s", host, t.opts.Name)
		}

		if t.opts.DryRun {
			log.Infof("%s: would run %s", host, cmd)
			continue
		}

		log.Debugf("%s: running %s", host, cmd)
		target := process.TargetFor(t.opts.Hosts, host, t.opts.SSH)
		runner := process.New(target, cmd, t.opts.Policy)
		if err := runner.Start(ctx); err != nil {
			t.killLocked()
			return err
		}
		t.runners = append(t.runners, runner)
	}

	return nil
}

// Wait blocks until every host has finished and returns one output per
// host.
func (t *Task) Wait() (outputs.Outputs, error) {
	return t.collect((*process.Runner).Wait)
}

// Kill terminates every host's command and returns what they produced.
func (t *Task) Kill() (outputs.Outputs, error) {
	return t.collect((*process.Runner).Kill)
}

func (t *Task) Run(ctx context.Context) (outputs.Outputs, error) {
	if err := t.Start(ctx); err != nil {
		return nil, err
	}

	if t.opts.Async {
		return outputs.Outputs{}, nil
	}
	return t.Wait()
}

func (t *Task) collect(fn func(*process.Runner) *process.Result) (outputs.Outputs, error) {
	t.mu.Lock()
	runners := t.runners
	dryRun := t.opts.DryRun
	t.mu.Unlock()

	outs := outputs.Outputs{}
	if dryRun {
		for _, host := range t.opts.Hosts.List() {
			outs.Add(outputs.Done(t.opts.Type, t.opts.Name, host, nil))
		}
		return outs, nil
	}

	mu := sync.Mutex{}
	g := errgroup.Group{}
	for _, runner := range runners {
		runner := runner
		g.Go(func() error {
			out := outputs.FromResult(t.opts.Type, t.opts.Name, fn(runner))

			mu.Lock()
			defer mu.Unlock()
			outs.Add(out)
			return nil
		})
	}
	_ = g.Wait()

	for _, host := range outs.Failed() {
		out := outs[host]
		log.Debugf("%s: %s failed with exit code %d", host, t.opts.Name, out.Code())
	}

	if t.opts.FailFast && !outs.Success() {
		codes := map[string]int{}
		for _, host := range outs.Failed() {
			codes[host] = outs[host].Code()
		}
		return outs, errors.WithStack(&process.ExitError{Command: t.opts.Name, Codes: codes})
	}

	return outs, nil
}

func (t *Task) killLocked() {
	for _, runner := range t.runners {
		runner.Kill()
	}
}
