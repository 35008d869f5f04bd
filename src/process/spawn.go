package process

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/illikainen/go-utils/src/stringx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// pipeline is one attempt of a command: one or more OS processes sharing a
// process group.
type pipeline struct {
	cmds   []*exec.Cmd
	stdout *buffer
	stderr *buffer
	mu     sync.Mutex
	pgid   int
	exited bool
}

func spawn(stages [][]string, policy Policy) (*pipeline, error) {
	if len(stages) == 0 {
		return nil, errors.Errorf("empty command")
	}

	p := &pipeline{}
	if policy.Capture {
		p.stdout = &buffer{}
		p.stderr = &buffer{}
	}

	var stdin *os.File
	for i, argv := range stages {
		cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204
		cmd.Dir = policy.Dir
		cmd.Env = policy.environ()
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: p.pgid}
		cmd.Stderr = p.writer(p.stderr, os.Stderr)
		switch {
		case stdin != nil:
			cmd.Stdin = stdin
		case !policy.Capture:
			cmd.Stdin = os.Stdin
		}

		var next *os.File
		var w *os.File
		if i == len(stages)-1 {
			cmd.Stdout = p.writer(p.stdout, os.Stdout)
		} else {
			var err error
			next, w, err = os.Pipe()
			if err != nil {
				p.abort(stdin)
				return nil, errors.WithStack(err)
			}
			cmd.Stdout = w
		}

		log.Tracef("exec: %s", argv)
		err := cmd.Start()
		closeFile(stdin)
		closeFile(w)
		if err != nil {
			closeFile(next)
			p.abort(nil)
			return nil, errors.WithStack(err)
		}

		if i == 0 {
			p.pgid = cmd.Process.Pid
		}
		setAffinity(cmd.Process.Pid, policy.Affinity)

		p.cmds = append(p.cmds, cmd)
		stdin = next
	}

	return p, nil
}

// wait reaps every stage and returns the exit code of the last one.
func (p *pipeline) wait() (int, error) {
	code := 0
	var waitErr error

	for i, cmd := range p.cmds {
		err := cmd.Wait()
		if i != len(p.cmds)-1 {
			continue
		}

		code = exitCode(cmd.ProcessState)
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			waitErr = errors.WithStack(err)
		}
	}

	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()

	return code, waitErr
}

// kill sends SIGKILL to the process group.  It is a no-op once the
// pipeline has been reaped.
func (p *pipeline) kill() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited || p.pgid == 0 {
		return
	}

	err := syscall.Kill(-p.pgid, syscall.SIGKILL)
	if err != nil && !errors.Is(err, syscall.ESRCH) {
		log.Warnf("pgid %d: unable to kill: %s", p.pgid, err)
	}
}

func (p *pipeline) output() ([]string, []string) {
	if p.stdout == nil {
		return nil, nil
	}
	return splitLines(p.stdout.String()), splitLines(p.stderr.String())
}

func (p *pipeline) abort(stdin *os.File) {
	closeFile(stdin)
	p.kill()
	for _, cmd := range p.cmds {
		_ = cmd.Wait()
	}
	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()
}

func (p *pipeline) writer(buf *buffer, fallback *os.File) io.Writer {
	if buf == nil {
		return fallback
	}
	return buf
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return state.ExitCode()
}

func closeFile(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := stringx.SplitLines(s)
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// buffer is written to concurrently by the output copiers of every stage.
type buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
