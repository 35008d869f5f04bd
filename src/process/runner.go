package process

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var errKilled = errors.New("killed")

// Runner executes one command against one host, retrying failed attempts
// according to its policy.  Start and Wait split a run into a non-blocking
// and a blocking half.
type Runner struct {
	target Target
	cmd    Command
	policy Policy

	mu       sync.Mutex
	started  bool
	killed   bool
	done     chan struct{}
	cancel   context.CancelFunc
	current  *pipeline
	result   *Result
	attempts int
}

func New(target Target, cmd Command, policy Policy) *Runner {
	return &Runner{
		target: target,
		cmd:    cmd,
		policy: policy,
	}
}

func (r *Runner) Host() string {
	return r.target.Host
}

func (r *Runner) Command() Command {
	return r.cmd
}

// Start launches the retry loop in the background.
func (r *Runner) Start(ctx context.Context) error {
	if r.cmd.IsZero() {
		return errors.Errorf("%s: empty command", r.target.Host)
	}
	if !r.target.Local && r.target.Host == "" {
		return errors.Errorf("empty host")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.Errorf("%s: %s: already started", r.target.Host, r.cmd)
	}

	ctx, cancel := context.WithCancel(ctx)
	r.started = true
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx)
	return nil
}

// Wait blocks until the retry loop has finished and returns the result of
// the last attempt.  Waiting on a runner that was never started returns an
// empty result.
func (r *Runner) Wait() *Result {
	r.mu.Lock()
	started, done := r.started, r.done
	r.mu.Unlock()

	if !started {
		return &Result{Host: r.target.Host}
	}

	<-done

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.result == nil {
		return &Result{Host: r.target.Host, Attempts: r.attempts}
	}
	return r.result
}

func (r *Runner) Run(ctx context.Context) *Result {
	if err := r.Start(ctx); err != nil {
		return &Result{Host: r.target.Host, Err: err}
	}
	return r.Wait()
}

// Kill terminates the current attempt, stops further retries and waits for
// the runner to finish.  Killing a finished runner only returns its result.
func (r *Runner) Kill() *Result {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return &Result{Host: r.target.Host}
	}
	r.killed = true
	current, cancel := r.current, r.cancel
	r.mu.Unlock()

	if current != nil {
		log.Debugf("%s: killing %s", r.target.Host, r.cmd)
		current.kill()
	}
	cancel()

	return r.Wait()
}

func (r *Runner) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	defer r.cancel()

	retries := r.policy.MaxRetries
	if retries < 0 {
		retries = 0
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.policy.RetryDelay), uint64(retries)),
		ctx,
	)

	err := backoff.RetryNotify(func() error {
		res := r.attempt(ctx)

		r.mu.Lock()
		r.attempts++
		res.Attempts = r.attempts
		r.result = res
		killed := r.killed
		r.mu.Unlock()

		if res.Success() {
			return nil
		}
		if killed {
			return backoff.Permanent(errKilled)
		}
		if res.Err != nil {
			return res.Err
		}
		return errors.Errorf("exit code %d", res.Code())
	}, b, func(err error, delay time.Duration) {
		log.Infof("%s: retrying %s in %s: %s", r.target.Host, r.cmd, delay, err)
	})
	if err != nil {
		log.Debugf("%s: %s: %s", r.target.Host, r.cmd, err)
	}
}

func (r *Runner) attempt(ctx context.Context) *Result {
	res := &Result{Host: r.target.Host}

	policy := r.policy
	if !r.target.Local {
		policy.Dir = ""
		policy.Env = nil
		policy.Affinity = nil
	}

	p, err := spawn(r.stages(), policy)
	if err != nil {
		log.Warnf("%s: unable to start %s: %s", r.target.Host, r.cmd, err)
		res.Err = err
		return res
	}

	r.mu.Lock()
	r.current = p
	killed := r.killed
	r.mu.Unlock()

	if killed {
		p.kill()
	}

	stop := context.AfterFunc(ctx, p.kill)
	code, err := p.wait()
	stop()

	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()

	res.ExitCode = &code
	res.Stdout, res.Stderr = p.output()
	res.Err = err
	return res
}

// stages resolves the argv of every process to spawn for the command.
func (r *Runner) stages() [][]string {
	cmd := r.cmd
	if r.policy.Sudo {
		cmd = cmd.escalate(r.policy.shell())
	}

	if r.target.Local {
		if cmd.IsShell() {
			return [][]string{append(r.policy.shell(), cmd.Script())}
		}
		return cmd.Stages()
	}

	ssh := r.target.SSH
	argv := append([]string{"ssh"}, ssh.Options("-p")...)
	argv = append(argv, ssh.Destination(r.target.Host), "--", r.policy.remote(cmd))
	return [][]string{ssh.Wrap(argv)}
}
