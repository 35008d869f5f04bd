package tasks

import (
	"github.com/samber/lo"
)

type Tasks []Task

func (t Tasks) Names() []string {
	return lo.Map(t, func(task Task, _ int) string {
		return task.Name()
	})
}
