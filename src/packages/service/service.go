package service

import (
	"path/filepath"
	"time"

	"github.com/jarvis-cd/jarvis/src/embeds"
	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/launcher"
	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks"
	"github.com/jarvis-cd/jarvis/src/tasks/exec"
	"github.com/jarvis-cd/jarvis/src/tasks/mkdir"
	"github.com/jarvis-cd/jarvis/src/tasks/remove"
	"github.com/jarvis-cd/jarvis/src/tasks/sleep"
	"github.com/jarvis-cd/jarvis/src/tasks/symlink"
	"github.com/jarvis-cd/jarvis/src/tasks/systemd"
	"github.com/jarvis-cd/jarvis/src/tasks/transfer"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const Name = "service"

func init() {
	lo.Must0(launcher.Register(Name, New))
}

// Service deploys files to a set of hosts and drives a service on them
// with shell commands or a systemd unit.
type Service struct {
	ctx      *launcher.Context
	settings *settings
	hosts    hosts.Hosts
	ssh      *hosts.SSHInfo
	policy   process.Policy
}

func New() (launcher.Provider, error) {
	return &Service{}, nil
}

func (s *Service) Name() string {
	return Name
}

func (s *Service) DefaultConfig() (string, []byte) {
	return "default.hcl", lo.Must1(embeds.ReadPackageConfig(Name, "default.hcl"))
}

func (s *Service) Configure(ctx *launcher.Context) error {
	settings, err := decode(ctx.Config)
	if err != nil {
		return err
	}

	h, err := settings.resolveHosts()
	if err != nil {
		return err
	}

	ssh, err := settings.sshInfo()
	if err != nil {
		return err
	}

	if _, err := ctx.WriteHostfile(h); err != nil {
		return err
	}

	for i, src := range settings.deploy.Sources {
		if !filepath.IsAbs(src) {
			settings.deploy.Sources[i] = filepath.Join(ctx.Env.PackageDir(ctx.Name), src)
		}
	}

	s.ctx = ctx
	s.settings = settings
	s.hosts = h
	s.ssh = ssh
	s.policy = settings.policy(ctx.Environ())

	log.Debugf("%s: %d hosts: %s", ctx.Name, h.Len(), h)
	return nil
}

func (s *Service) options(name string, failFast bool) exec.Options {
	return exec.Options{
		Name:     name,
		Hosts:    s.hosts,
		SSH:      s.ssh,
		Policy:   s.policy,
		FailFast: failFast,
		DryRun:   s.ctx.Env.DryRun,
	}
}

func (s *Service) command(name string, cmd string, failFast bool) (tasks.Task, error) {
	opts := s.options(name, failFast)
	return exec.New(process.Shell(cmd), &opts)
}

func (s *Service) DefineInit() (tasks.Tasks, error) {
	ts := tasks.Tasks{}
	deploy := s.settings.deploy
	svc := s.settings.service

	if len(deploy.Dirs) != 0 {
		task, err := mkdir.New(deploy.Dirs, 0, s.options("", true))
		if err != nil {
			return nil, err
		}
		ts = append(ts, task)
	}

	if len(deploy.Sources) != 0 {
		task, err := transfer.New(deploy.Sources, deploy.Destination, &transfer.Options{
			Hosts:  s.hosts,
			SSH:    s.ssh,
			Method: s.settings.ssh.Transfer,
			Policy: s.policy,
			DryRun: s.ctx.Env.DryRun,
		})
		if err != nil {
			return nil, err
		}
		ts = append(ts, task)
	}

	if deploy.Link != "" {
		task, err := symlink.New(deploy.Destination, deploy.Link, s.options("", true))
		if err != nil {
			return nil, err
		}
		ts = append(ts, task)
	}

	if svc.SystemdUnit != "" {
		for _, action := range []string{systemd.DaemonReload, systemd.Enable} {
			task, err := systemd.New(svc.SystemdUnit, action, s.options("", true))
			if err != nil {
				return nil, err
			}
			ts = append(ts, task)
		}
	}

	if svc.InitCmd != "" {
		task, err := s.command("init", svc.InitCmd, true)
		if err != nil {
			return nil, err
		}
		ts = append(ts, task)
	}

	return ts, nil
}

func (s *Service) DefineStart() (tasks.Tasks, error) {
	ts := tasks.Tasks{}
	svc := s.settings.service

	switch {
	case svc.SystemdUnit != "":
		task, err := systemd.New(svc.SystemdUnit, systemd.Start, s.options("", true))
		if err != nil {
			return nil, err
		}
		ts = append(ts, task)
	case svc.StartCmd != "":
		task, err := s.command("start", svc.StartCmd, true)
		if err != nil {
			return nil, err
		}
		ts = append(ts, task)
	}

	if svc.StartDelay > 0 {
		task, err := sleep.New(time.Duration(svc.StartDelay * float64(time.Second)))
		if err != nil {
			return nil, err
		}
		ts = append(ts, task)
	}

	return ts, nil
}

func (s *Service) DefineStop() (tasks.Tasks, error) {
	svc := s.settings.service

	switch {
	case svc.SystemdUnit != "":
		task, err := systemd.New(svc.SystemdUnit, systemd.Stop, s.options("", false))
		if err != nil {
			return nil, err
		}
		return tasks.Tasks{task}, nil
	case svc.StopCmd != "":
		task, err := s.command("stop", svc.StopCmd, false)
		if err != nil {
			return nil, err
		}
		return tasks.Tasks{task}, nil
	}
	return tasks.Tasks{}, nil
}

func (s *Service) DefineClean() (tasks.Tasks, error) {
	if len(s.settings.service.CleanPaths) == 0 {
		return tasks.Tasks{}, nil
	}

	task, err := remove.New(s.settings.service.CleanPaths, s.options("", true))
	if err != nil {
		return nil, err
	}
	return tasks.Tasks{task}, nil
}

func (s *Service) DefineStatus() (tasks.Tasks, error) {
	svc := s.settings.service

	switch {
	case svc.SystemdUnit != "":
		task, err := systemd.New(svc.SystemdUnit, systemd.Status, s.options("", false))
		if err != nil {
			return nil, err
		}
		return tasks.Tasks{task}, nil
	case svc.StatusCmd != "":
		task, err := s.command("status", svc.StatusCmd, false)
		if err != nil {
			return nil, err
		}
		return tasks.Tasks{task}, nil
	}
	return tasks.Tasks{}, nil
}
