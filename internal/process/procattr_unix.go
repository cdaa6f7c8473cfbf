//go:build unix

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcGroup configures the command to run in its own process group.
// This allows us to kill all child processes together.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup kills the entire process group for the given PID.
// Returns nil if successful, or an error if the kill failed.
func killProcessGroup(pid int) error {
	// Kill the entire process group by using negative PID
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// signalProcessGroup delivers sig to the entire process group led by pid,
// falling back to signalling the leader directly if the group signal is
// unavailable. "No such process" is treated as already-exited, not an error.
func signalProcessGroup(pid int, sig os.Signal) error {
	unixSig, ok := sig.(syscall.Signal)
	if !ok {
		unixSig = syscall.SIGTERM
	}
	err := syscall.Kill(-pid, unixSig)
	if err == nil || err == syscall.ESRCH {
		return nil
	}
	if err == syscall.EPERM {
		if err := syscall.Kill(pid, unixSig); err == nil || err == syscall.ESRCH {
			return nil
		}
	}
	return err
}

