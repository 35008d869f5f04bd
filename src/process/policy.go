package process

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// Policy controls how a Runner executes its command.
type Policy struct {
	// Capture collects stdout and stderr instead of inheriting the
	// terminal.
	Capture bool

	// LoginShell runs shell scripts through `bash -l -c` instead of
	// `/bin/sh -c`.
	LoginShell bool

	Sudo     bool
	Affinity []int

	// MaxRetries is the number of additional attempts after a failure.
	MaxRetries int
	RetryDelay time.Duration

	Dir string
	Env map[string]string
}

func (p Policy) shell() []string {
	if p.LoginShell {
		return []string{"bash", "-l", "-c"}
	}
	return []string{"/bin/sh", "-c"}
}

func (p Policy) environ() []string {
	if len(p.Env) == 0 {
		return nil
	}
	return append(os.Environ(), p.envPairs()...)
}

func (p Policy) envPairs() []string {
	pairs := make([]string, 0, len(p.Env))
	for k, v := range p.Env {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return pairs
}

// remote renders cmd as a single script for a remote shell, carrying the
// working directory and environment along.
func (p Policy) remote(cmd Command) string {
	script := cmd.String()
	if p.LoginShell && cmd.IsShell() {
		script = shellquote.Join(append(p.shell(), script)...)
	}
	if len(p.Affinity) > 0 {
		cpus := make([]string, 0, len(p.Affinity))
		for _, cpu := range p.Affinity {
			cpus = append(cpus, strconv.Itoa(cpu))
		}
		script = shellquote.Join("taskset", "-c", strings.Join(cpus, ","), "/bin/sh", "-c", script)
	}

	prefix := []string{}
	for _, pair := range p.envPairs() {
		kv := strings.SplitN(pair, "=", 2)
		prefix = append(prefix, "export "+kv[0]+"="+shellquote.Join(kv[1])+";")
	}
	if p.Dir != "" {
		prefix = append(prefix, "cd "+shellquote.Join(p.Dir)+" &&")
	}
	if len(prefix) == 0 {
		return script
	}
	return strings.Join(prefix, " ") + " " + script
}
