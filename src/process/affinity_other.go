//go:build !linux

package process

import (
	log "github.com/sirupsen/logrus"
)

func setAffinity(pid int, cpus []int) {
	if len(cpus) != 0 {
		log.Warnf("pid %d: cpu affinity is not supported on this platform", pid)
	}
}
