//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyResize relays terminal resize notifications (SIGWINCH) to ch.
func notifyResize(ch chan os.Signal) {
	signal.Notify(ch, syscall.SIGWINCH)
}
