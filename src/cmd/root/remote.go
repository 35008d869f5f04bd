package rootcmd

import (
	"strings"
	"time"

	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/process"

	"github.com/spf13/pflag"
)

// Remote holds the flags shared by commands that target hosts directly
// instead of through a package.
type Remote struct {
	Hosts      []string
	Hostfile   string
	User       string
	Port       int
	Key        string
	Password   string
	KnownHosts string
	Sudo       bool
	Retries    int
	RetryDelay time.Duration
}

func (r *Remote) AddFlags(flags *pflag.FlagSet) {
	flags.StringSliceVarP(&r.Hosts, "host", "H", nil,
		"Run on these host(s).  May be provided multiple times")
	flags.StringVarP(&r.Hostfile, "hostfile", "", "", "File with one host per line")
	flags.StringVarP(&r.User, "user", "u", "", "SSH user")
	flags.IntVarP(&r.Port, "port", "p", 0, "SSH port")
	flags.StringVarP(&r.Key, "key", "k", "", "SSH private key")
	flags.StringVarP(&r.Password, "password", "", "", "SSH password")
	flags.StringVarP(&r.KnownHosts, "known-hosts", "", "", "SSH known_hosts file")
	flags.BoolVarP(&r.Sudo, "sudo", "s", false, "Run with sudo")
	flags.IntVarP(&r.Retries, "retries", "r", 0, "Additional attempts after a failure")
	flags.DurationVarP(&r.RetryDelay, "retry-delay", "", time.Second, "Delay between attempts")
}

// Resolve returns the targeted hosts, localhost by default, and the SSH
// parameters if any were given.
func (r *Remote) Resolve() (hosts.Hosts, *hosts.SSHInfo, error) {
	h := hosts.Localhost()
	var err error
	switch {
	case r.Hostfile != "":
		h, err = hosts.Load(r.Hostfile)
	case len(r.Hosts) != 0:
		h, err = hosts.Parse(strings.Join(r.Hosts, "\n"))
	}
	if err != nil {
		return hosts.Hosts{}, nil, err
	}

	h = h.WithLocalAliases()
	if err := h.Validate(); err != nil {
		return hosts.Hosts{}, nil, err
	}

	if r.User == "" && r.Port == 0 && r.Key == "" && r.Password == "" && r.KnownHosts == "" {
		return h, nil, nil
	}

	info := &hosts.SSHInfo{
		User:       r.User,
		Key:        r.Key,
		Password:   r.Password,
		Port:       r.Port,
		KnownHosts: r.KnownHosts,
	}
	if err := info.Validate(); err != nil {
		return hosts.Hosts{}, nil, err
	}
	return h, info, nil
}

func (r *Remote) Policy() process.Policy {
	return process.Policy{
		Capture:    true,
		Sudo:       r.Sudo,
		MaxRetries: r.Retries,
		RetryDelay: r.RetryDelay,
	}
}
