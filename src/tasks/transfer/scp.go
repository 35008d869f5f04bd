package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

func init() {
	lo.Must0(Register(SCP, newSCPStrategy))
}

type scpStrategy struct {
	name   string
	ssh    *hosts.SSHInfo
	policy process.Policy
}

func newSCPStrategy(opts *Options) (Strategy, error) {
	policy := opts.Policy
	policy.Capture = true
	policy.Sudo = false
	policy.LoginShell = false
	policy.Dir = ""
	policy.Env = nil

	return &scpStrategy{name: opts.Name, ssh: opts.SSH, policy: policy}, nil
}

type step struct {
	target process.Target
	cmd    process.Command
	desc   string
	kind   string
}

// Copy runs one step at a time across every host.  Each step is started on
// all hosts before any of them is awaited.  A host that fails a step is
// left out of the remaining steps.
func (s *scpStrategy) Copy(ctx context.Context, plan *Plan, hosts []string) outputs.Outputs {
	outs := outputs.Outputs{}
	steps := map[string][]step{}
	for _, host := range hosts {
		hostSteps, err := s.steps(plan, host)
		if err != nil {
			outs.Add(outputs.Failed(Type, s.name, host, err))
			continue
		}
		steps[host] = hostSteps
		outs.Add(outputs.Done(Type, s.name, host, nil))
	}

	for i := 0; ; i++ {
		runners := map[string]*process.Runner{}
		current := map[string]step{}
		for _, host := range hosts {
			if !outs[host].Success() || i >= len(steps[host]) {
				continue
			}

			st := steps[host][i]
			log.Debugf("%s: %s", host, st.desc)
			runner := process.New(st.target, st.cmd, s.policy)
			if err := runner.Start(ctx); err != nil {
				fail(outs[host], err.Error())
				continue
			}
			runners[host] = runner
			current[host] = st
		}

		if len(runners) == 0 {
			return outs
		}

		for _, host := range lo.Keys(runners) {
			res := runners[host].Wait()
			out := outs[host]
			out.Stdout = append(out.Stdout, res.Stdout...)
			out.Stderr = append(out.Stderr, res.Stderr...)

			if !res.Success() {
				msg := fmt.Sprintf("%s: exit code %d", current[host].desc, res.Code())
				if res.Err != nil {
					msg = res.Err.Error()
				}
				fail(out, msg)
				if res.ExitCode != nil {
					out.ExitCode = res.ExitCode
				}
				log.Warnf("%s: %s: %s", host, s.name, out.Error)
				continue
			}

			out.Changed = true
			kind := current[host].kind
			out.Diff = lo.Assign(out.Diff, map[string][]string{
				kind: append(out.Diff[kind], current[host].desc),
			})
		}
	}
}

// steps creates the directories of the plan and copies every root with
// one scp process each.  Directory roots are copied by their children so
// that the contents land directly in the destination.
func (s *scpStrategy) steps(plan *Plan, host string) ([]step, error) {
	remote := process.Target{Host: host, SSH: s.ssh}
	local := process.Target{Host: host, Local: true}

	steps := []step{{
		target: remote,
		cmd:    process.Args(append([]string{"mkdir", "-p", "--"}, plan.Parents()...)...),
		desc:   strings.Join(plan.Parents(), " "),
		kind:   "mkdir",
	}}

	for _, root := range plan.Roots {
		var srcs []string
		recursive := false

		if root.Kind == File {
			srcs = []string{root.Src}
		} else {
			children, err := os.ReadDir(root.Src)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			for _, child := range children {
				srcs = append(srcs, filepath.Join(root.Src, child.Name()))
				recursive = recursive || child.IsDir()
			}
		}

		if len(srcs) == 0 {
			continue
		}

		argv := append([]string{"scp", "-q", "-p"}, s.ssh.Options("-P")...)
		if recursive {
			argv = append(argv, "-r")
		}
		argv = append(argv, "--")
		argv = append(argv, srcs...)
		argv = append(argv, s.ssh.Destination(host)+":"+root.Dst)

		steps = append(steps, step{
			target: local,
			cmd:    process.Args(s.ssh.Wrap(argv)...),
			desc:   fmt.Sprintf("%s -> %s", root.Src, root.Dst),
			kind:   "file",
		})
	}

	return steps, nil
}

func fail(out *outputs.Output, msg string) {
	code := 1
	out.ExitCode = &code
	out.Error = msg
}
