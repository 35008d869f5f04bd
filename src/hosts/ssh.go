package hosts

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// SSHInfo holds the connection parameters shared by every remote host of a
// task.
type SSHInfo struct {
	User       string `validate:"omitempty,excludesall=@"`
	Key        string `validate:"omitempty,file"`
	Password   string
	Port       int    `validate:"omitempty,min=1,max=65535"`
	KnownHosts string `validate:"omitempty,file"`
}

func (s *SSHInfo) Validate() error {
	if s == nil {
		return nil
	}
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, "ssh")
	}
	return nil
}

// Destination returns user@host, or host when no user is configured.
func (s *SSHInfo) Destination(host string) string {
	if s == nil || s.User == "" {
		return host
	}
	return s.User + "@" + host
}

func (s *SSHInfo) PortOrDefault() int {
	if s == nil || s.Port == 0 {
		return 22
	}
	return s.Port
}

// Options returns the command line options shared by ssh and scp.  The port
// flag differs between the two, so it is passed in.
func (s *SSHInfo) Options(portFlag string) []string {
	opts := []string{"-o", "BatchMode=" + batchMode(s)}
	if s == nil {
		return opts
	}

	if s.Port != 0 {
		opts = append(opts, portFlag, strconv.Itoa(s.Port))
	}
	if s.Key != "" {
		opts = append(opts, "-i", s.Key)
	}
	if s.KnownHosts != "" {
		opts = append(opts, "-o", "UserKnownHostsFile="+s.KnownHosts)
	} else {
		opts = append(opts, "-o", "StrictHostKeyChecking=accept-new")
	}
	return opts
}

// Wrap prefixes argv with sshpass when a password is configured.
func (s *SSHInfo) Wrap(argv []string) []string {
	if s == nil || s.Password == "" {
		return argv
	}
	return append([]string{"sshpass", "-p", s.Password}, argv...)
}

func batchMode(s *SSHInfo) string {
	if s != nil && s.Password != "" {
		return "no"
	}
	return "yes"
}
