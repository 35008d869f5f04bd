package launcher

import (
	"fmt"
	"io"

	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/fatih/color"
	"github.com/samber/lo"
)

// TaskResult is the outcome of one task of a phase.
type TaskResult struct {
	Phase   Phase
	Name    string
	Outputs outputs.Outputs
	Err     error
}

func (r *TaskResult) ExitCode() int {
	code := r.Outputs.ExitCode()
	if code == 0 && r.Err != nil {
		return 1
	}
	return code
}

type Results []*TaskResult

// ExitCode is 0 if every task succeeded on every host.
func (r Results) ExitCode() int {
	for _, result := range r {
		if code := result.ExitCode(); code != 0 {
			return code
		}
	}
	return 0
}

func (r Results) Failed() Results {
	return lo.Filter(r, func(result *TaskResult, _ int) bool {
		return result.ExitCode() != 0
	})
}

func (r Results) Print(w io.Writer) error {
	failed := color.New(color.FgRed, color.Bold).SprintFunc()

	for _, result := range r {
		_, err := fmt.Fprintf(w, "%s: %s\n", result.Phase, result.Name)
		if err != nil {
			return err
		}

		err = result.Outputs.Print(w)
		if err != nil {
			return err
		}

		if result.Err != nil {
			if _, err := fmt.Fprintf(w, "  %s\n", failed(result.Err)); err != nil {
				return err
			}
		}
	}

	return nil
}
