package tasks

import (
	"context"

	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/pkg/errors"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Task is a unit of work that fans out over a set of hosts.  Run returns
// whatever outputs were collected even when it also returns an error.
type Task interface {
	Name() string
	Run(ctx context.Context) (outputs.Outputs, error)
}
