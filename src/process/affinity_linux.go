package process

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

func setAffinity(pid int, cpus []int) {
	if len(cpus) == 0 {
		return
	}

	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(cpu)
	}

	if err := unix.SchedSetaffinity(pid, &set); err != nil {
		log.Warnf("pid %d: unable to set cpu affinity %v: %s", pid, cpus, err)
	}
}
