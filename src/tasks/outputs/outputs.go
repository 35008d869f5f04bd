package outputs

import (
	"sort"

	"github.com/samber/lo"
)

// Outputs maps a host to its output for one task.
type Outputs map[string]*Output

func (o Outputs) Add(out *Output) {
	o[out.Host] = out
}

func (o Outputs) Merge(other Outputs) Outputs {
	return lo.Assign(o, other)
}

func (o Outputs) Hosts() []string {
	hosts := lo.Keys(o)
	sort.Strings(hosts)
	return hosts
}

func (o Outputs) Failed() []string {
	return lo.Filter(o.Hosts(), func(host string, _ int) bool {
		return !o[host].Success()
	})
}

func (o Outputs) Success() bool {
	return len(o.Failed()) == 0
}

// ExitCode is 0 if every host succeeded.  Otherwise it is the exit code of
// the first failed host in sorted order, or 1 if that host has no usable
// code.
func (o Outputs) ExitCode() int {
	failed := o.Failed()
	if len(failed) == 0 {
		return 0
	}

	code := o[failed[0]].Code()
	if code <= 0 {
		return 1
	}
	return code
}

func (o Outputs) Changed() bool {
	return lo.SomeBy(lo.Values(o), func(out *Output) bool {
		return out.IsChanged()
	})
}
