// SPDX-License-Identifier: MPL-2.0

//go:build windows

package supervise

import (
	"os"
	"os/exec"
)

// Windows has no POSIX process groups; signals target the worker process
// itself and descendants are cleaned up by the worker's own shutdown path.

func setProcessGroup(_ *exec.Cmd) {}

func terminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func gracefulSignal() os.Signal { return os.Interrupt }

func signalGroup(p *os.Process, sig os.Signal) error {
	return p.Signal(sig)
}

func killGroup(p *os.Process) error {
	return p.Kill()
}
