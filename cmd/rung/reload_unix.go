//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyReload relays config-reload requests (SIGHUP) to ch.
func notifyReload(ch chan os.Signal) {
	signal.Notify(ch, syscall.SIGHUP)
}
