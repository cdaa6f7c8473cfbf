//go:build windows

package process

import (
	"os"
	"syscall"

	"github.com/rung-dev/rung/internal/config"
)

// stopSignalOS maps a configured StopSignal to the concrete os.Signal to
// deliver. Windows consoles don't distinguish SIGTERM/SIGINT/SIGHUP; any of
// them resolves to syscall.SIGTERM and signalProcessGroup treats all of them
// as "kill the tree" (see procattr_windows.go).
func stopSignalOS(_ config.StopSignal) os.Signal {
	return syscall.SIGTERM
}
