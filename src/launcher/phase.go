package launcher

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type Phase int

const (
	Init Phase = iota
	Start
	Stop
	Clean
	Restart
	Reset
	Status
	Setup
)

var phaseNames = map[Phase]string{
	Init:    "init",
	Start:   "start",
	Stop:    "stop",
	Clean:   "clean",
	Restart: "restart",
	Reset:   "reset",
	Status:  "status",
	Setup:   "setup",
}

func Phases() []Phase {
	return []Phase{Init, Start, Stop, Clean, Restart, Reset, Status, Setup}
}

func ParsePhase(s string) (Phase, error) {
	phase, ok := lo.Find(Phases(), func(p Phase) bool {
		return p.String() == s
	})
	if !ok {
		return 0, errors.Errorf("%s is not a valid phase", s)
	}
	return phase, nil
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Expand returns the primitive phases that make up p, in execution order.
func (p Phase) Expand() []Phase {
	switch p {
	case Restart:
		return []Phase{Stop, Start}
	case Reset:
		return []Phase{Stop, Clean, Init, Start}
	case Setup:
		return []Phase{Init, Start}
	}
	return []Phase{p}
}
