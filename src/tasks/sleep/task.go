package sleep

import (
	"context"
	"fmt"
	"time"

	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/tasks"
	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const Type = "sleep"

// Task pauses a phase, typically to give a service time to come up.
type Task struct {
	name     string
	duration time.Duration
}

func New(duration time.Duration) (*Task, error) {
	if duration < 0 {
		return nil, errors.Wrapf(tasks.ErrInvalidArgument, "sleep: negative duration %s", duration)
	}
	return &Task{name: fmt.Sprintf("sleep %s", duration), duration: duration}, nil
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) Run(ctx context.Context) (outputs.Outputs, error) {
	log.Debugf("%s: sleeping for %s", hosts.Local, t.duration)

	timer := time.NewTimer(t.duration)
	defer timer.Stop()

	outs := outputs.Outputs{}
	select {
	case <-timer.C:
		outs.Add(outputs.Done(Type, t.name, hosts.Local, nil))
		return outs, nil
	case <-ctx.Done():
		err := errors.WithStack(ctx.Err())
		outs.Add(outputs.Failed(Type, t.name, hosts.Local, err))
		return outs, err
	}
}
