package service

import (
	"strings"
	"time"

	"github.com/jarvis-cd/jarvis/src/configs"
	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks/transfer"

	"github.com/pkg/errors"
)

type hostsSection struct {
	Hostfile string   `cty:"HOSTFILE"`
	Hosts    []string `cty:"HOSTS"`
}

type sshSection struct {
	User       string `cty:"USER"`
	Key        string `cty:"KEY"`
	Password   string `cty:"PASSWORD"`
	Port       int    `cty:"PORT"`
	KnownHosts string `cty:"KNOWN_HOSTS"`
	Transfer   string `cty:"TRANSFER"`
}

type execSection struct {
	MaxRetries int     `cty:"MAX_RETRIES"`
	RetryDelay float64 `cty:"RETRY_DELAY"`
	Sudo       bool    `cty:"SUDO"`
	LoginShell bool    `cty:"LOGIN_SHELL"`
	Affinity   []int   `cty:"AFFINITY"`
	Dir        string  `cty:"DIR"`
}

type deploySection struct {
	Sources     []string `cty:"SOURCES"`
	Destination string   `cty:"DESTINATION"`
	Link        string   `cty:"LINK"`
	Dirs        []string `cty:"DIRS"`
}

type serviceSection struct {
	InitCmd     string   `cty:"INIT_CMD"`
	StartCmd    string   `cty:"START_CMD"`
	StopCmd     string   `cty:"STOP_CMD"`
	StatusCmd   string   `cty:"STATUS_CMD"`
	CleanPaths  []string `cty:"CLEAN_PATHS"`
	SystemdUnit string   `cty:"SYSTEMD_UNIT"`
	StartDelay  float64  `cty:"START_DELAY"`
}

type settings struct {
	hosts   hostsSection
	ssh     sshSection
	exec    execSection
	deploy  deploySection
	service serviceSection
}

func decode(config *configs.Config) (*settings, error) {
	s := &settings{}
	for name, out := range map[string]any{
		"hosts":   &s.hosts,
		"ssh":     &s.ssh,
		"exec":    &s.exec,
		"deploy":  &s.deploy,
		"service": &s.service,
	} {
		if err := config.Decode(name, out); err != nil {
			return nil, err
		}
	}

	if s.exec.MaxRetries < 0 || s.exec.RetryDelay < 0 || s.service.StartDelay < 0 {
		return nil, errors.Wrap(configs.ErrInvalidType, "negative retry or delay")
	}

	switch s.ssh.Transfer {
	case "":
		s.ssh.Transfer = transfer.SFTP
	case transfer.SFTP, transfer.SCP:
	default:
		return nil, errors.Wrapf(configs.ErrInvalidType, "ssh.TRANSFER: %s is not sftp or scp",
			s.ssh.Transfer)
	}

	if (len(s.deploy.Sources) != 0 || s.deploy.Link != "") && s.deploy.Destination == "" {
		return nil, errors.Wrap(configs.ErrInvalidType, "deploy.DESTINATION is required with SOURCES or LINK")
	}

	return s, nil
}

func (s *settings) resolveHosts() (hosts.Hosts, error) {
	var h hosts.Hosts
	var err error
	if s.hosts.Hostfile != "" {
		h, err = hosts.Load(s.hosts.Hostfile)
	} else {
		h, err = hosts.Parse(strings.Join(s.hosts.Hosts, "\n"))
	}
	if err != nil {
		return hosts.Hosts{}, err
	}

	h = h.WithLocalAliases()
	if err := h.Validate(); err != nil {
		return hosts.Hosts{}, err
	}
	return h, nil
}

func (s *settings) sshInfo() (*hosts.SSHInfo, error) {
	port := s.ssh.Port
	if port == 22 {
		port = 0
	}
	if s.ssh.User == "" && s.ssh.Key == "" && s.ssh.Password == "" && s.ssh.KnownHosts == "" && port == 0 {
		return nil, nil
	}

	info := &hosts.SSHInfo{
		User:       s.ssh.User,
		Key:        s.ssh.Key,
		Password:   s.ssh.Password,
		KnownHosts: s.ssh.KnownHosts,
		Port:       port,
	}
	return info, info.Validate()
}

func (s *settings) policy(env map[string]string) process.Policy {
	return process.Policy{
		Capture:    true,
		LoginShell: s.exec.LoginShell,
		Sudo:       s.exec.Sudo,
		Affinity:   s.exec.Affinity,
		MaxRetries: s.exec.MaxRetries,
		RetryDelay: time.Duration(s.exec.RetryDelay * float64(time.Second)),
		Dir:        s.exec.Dir,
		Env:        env,
	}
}
