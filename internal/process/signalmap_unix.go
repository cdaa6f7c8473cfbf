//go:build !windows

package process

import (
	"os"
	"syscall"

	"github.com/rung-dev/rung/internal/config"
)

// stopSignalOS maps a configured StopSignal to the concrete os.Signal to
// deliver to the process group.
func stopSignalOS(sig config.StopSignal) os.Signal {
	switch sig {
	case config.SignalINT:
		return syscall.SIGINT
	case config.SignalHUP:
		return syscall.SIGHUP
	default:
		return syscall.SIGTERM
	}
}
