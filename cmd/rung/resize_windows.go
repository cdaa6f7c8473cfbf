//go:build windows

package main

import "os"

// notifyResize is a no-op on Windows: there is no SIGWINCH equivalent: the
// console host does not deliver a signal on resize.
func notifyResize(ch chan os.Signal) {}
