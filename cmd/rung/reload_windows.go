//go:build windows

package main

import "os"

// notifyReload is a no-op on Windows: SIGHUP does not exist there, so config
// reload is unix-only.
func notifyReload(ch chan os.Signal) {}
