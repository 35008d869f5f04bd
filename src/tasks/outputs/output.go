package outputs

import (
	"github.com/jarvis-cd/jarvis/src/process"
)

// Output is the per-host outcome of a task.
type Output struct {
	Type     string              `json:"type"`
	Host     string              `json:"host"`
	Name     string              `json:"name"`
	ExitCode *int                `json:"exit_code"`
	Stdout   []string            `json:"stdout"`
	Stderr   []string            `json:"stderr"`
	Changed  bool                `json:"changed"`
	Diff     map[string][]string `json:"diff"`
	Error    string              `json:"error"`
}

// FromResult converts the result of a process runner.
func FromResult(typ string, name string, res *process.Result) *Output {
	out := &Output{
		Type:     typ,
		Host:     res.Host,
		Name:     name,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Changed:  res.ExitCode != nil,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// Done is a successful output with optional changes.
func Done(typ string, name string, host string, diff map[string][]string) *Output {
	code := 0
	changed := false
	for _, lines := range diff {
		changed = changed || len(lines) > 0
	}

	return &Output{
		Type:     typ,
		Host:     host,
		Name:     name,
		ExitCode: &code,
		Changed:  changed,
		Diff:     diff,
	}
}

// Failed is an output for a host where the task could not complete.
func Failed(typ string, name string, host string, err error) *Output {
	code := 1
	return &Output{
		Type:     typ,
		Host:     host,
		Name:     name,
		ExitCode: &code,
		Error:    err.Error(),
	}
}

func (o *Output) Success() bool {
	return o.ExitCode != nil && *o.ExitCode == 0 && o.Error == ""
}

// Code returns the exit code, or -1 if nothing ran.
func (o *Output) Code() int {
	if o.ExitCode == nil {
		return -1
	}
	return *o.ExitCode
}

func (o *Output) IsChanged() bool {
	return o.Changed
}

func (o *Output) Differences() map[string][]string {
	return o.Diff
}
