package process

import (
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// Command is either a chain of argv stages connected stdout to stdin, or a
// single script interpreted by a shell.  It is immutable once constructed.
type Command struct {
	stages [][]string
	script string
}

func Args(argv ...string) Command {
	return Pipe(argv)
}

func Pipe(stages ...[]string) Command {
	c := Command{}
	for _, stage := range stages {
		if len(stage) > 0 {
			c.stages = append(c.stages, append([]string{}, stage...))
		}
	}
	return c
}

func Shell(script string) Command {
	return Command{script: script}
}

// Parse splits s into argv tokens.  A bare "|" token separates pipe stages.
func Parse(s string) (Command, error) {
	tokens, err := shellquote.Split(s)
	if err != nil {
		return Command{}, errors.WithStack(err)
	}

	stages := [][]string{{}}
	for _, token := range tokens {
		if token == "|" {
			stages = append(stages, []string{})
			continue
		}
		stages[len(stages)-1] = append(stages[len(stages)-1], token)
	}

	for _, stage := range stages {
		if len(stage) == 0 {
			return Command{}, errors.Errorf("%s: empty pipeline stage", s)
		}
	}
	return Pipe(stages...), nil
}

func (c Command) IsShell() bool {
	return c.script != ""
}

func (c Command) IsZero() bool {
	return c.script == "" && len(c.stages) == 0
}

func (c Command) Script() string {
	return c.script
}

func (c Command) Stages() [][]string {
	out := make([][]string, 0, len(c.stages))
	for _, stage := range c.stages {
		out = append(out, append([]string{}, stage...))
	}
	return out
}

// String renders the command as a shell string.
func (c Command) String() string {
	if c.IsShell() {
		return c.script
	}

	parts := make([]string, 0, len(c.stages))
	for _, stage := range c.stages {
		parts = append(parts, shellquote.Join(stage...))
	}
	return strings.Join(parts, " | ")
}

// escalate rewrites the command to run as the superuser.
func (c Command) escalate(shell []string) Command {
	if c.IsShell() {
		argv := append(append([]string{"sudo"}, shell...), c.script)
		return Shell(shellquote.Join(argv...))
	}

	stages := make([][]string, 0, len(c.stages))
	for _, stage := range c.stages {
		stages = append(stages, append([]string{"sudo"}, stage...))
	}
	return Pipe(stages...)
}
