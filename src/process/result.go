package process

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var ErrProcessFailed = errors.New("process failed")

// Result is the outcome of a Runner.  ExitCode is nil when no process was
// ever started.
type Result struct {
	Host     string
	ExitCode *int
	Stdout   []string
	Stderr   []string
	Attempts int
	Err      error
}

func (r *Result) Success() bool {
	return r != nil && r.ExitCode != nil && *r.ExitCode == 0
}

// Code returns the exit code, or -1 when the process never started.
func (r *Result) Code() int {
	if r == nil || r.ExitCode == nil {
		return -1
	}
	return *r.ExitCode
}

// ExitError reports the hosts on which a command exited nonzero after its
// retries were exhausted.
type ExitError struct {
	Command string
	Codes   map[string]int
}

func (e *ExitError) Error() string {
	hosts := make([]string, 0, len(e.Codes))
	for host, code := range e.Codes {
		hosts = append(hosts, fmt.Sprintf("%s (exit %d)", host, code))
	}
	sort.Strings(hosts)
	return fmt.Sprintf("%s: %s on %s", e.Command, ErrProcessFailed, strings.Join(hosts, ", "))
}

func (e *ExitError) Is(target error) bool {
	return target == ErrProcessFailed
}
