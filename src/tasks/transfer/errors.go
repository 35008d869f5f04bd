package transfer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/pkg/errors"
)

var ErrFailed = errors.New("transfer failed")

// Error collects the failure of every host that could not receive
// its copy.
type Error struct {
	Failures map[string]string
}

func newError(outs outputs.Outputs) error {
	failed := outs.Failed()
	if len(failed) == 0 {
		return nil
	}

	e := &Error{Failures: map[string]string{}}
	for _, host := range failed {
		msg := outs[host].Error
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", outs[host].Code())
		}
		e.Failures[host] = msg
	}
	return e
}

func (e *Error) Error() string {
	hosts := make([]string, 0, len(e.Failures))
	for host, msg := range e.Failures {
		hosts = append(hosts, fmt.Sprintf("%s (%s)", host, msg))
	}
	sort.Strings(hosts)
	return fmt.Sprintf("%s on %s", ErrFailed, strings.Join(hosts, ", "))
}

func (e *Error) Is(target error) bool {
	return target == ErrFailed
}
