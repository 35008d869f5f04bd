package process

import (
	"github.com/jarvis-cd/jarvis/src/hosts"
)

// Target is the host a Runner executes on.  Remote targets are reached
// through ssh.
type Target struct {
	Host  string
	Local bool
	SSH   *hosts.SSHInfo
}

func LocalTarget() Target {
	return Target{Host: hosts.Local, Local: true}
}

func TargetFor(h hosts.Hosts, host string, ssh *hosts.SSHInfo) Target {
	return Target{
		Host:  host,
		Local: h.IsLocal(host),
		SSH:   ssh,
	}
}
