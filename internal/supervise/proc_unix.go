// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package supervise

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup makes the worker the leader of a fresh process group so a
// single kill(2) on the negated pid reaches the worker and all descendants.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminationSignals lists the signals that request a graceful shutdown.
func terminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

// gracefulSignal is the signal forwarded when shutdown is requested through
// context cancellation rather than an OS signal.
func gracefulSignal() os.Signal { return syscall.SIGTERM }

// signalGroup delivers sig to the worker's whole process group.
func signalGroup(p *os.Process, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		s = syscall.SIGTERM
	}
	return syscall.Kill(-p.Pid, s)
}

// killGroup forcefully terminates the worker's whole process group.
func killGroup(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGKILL)
}
