// SPDX-License-Identifier: MPL-2.0

// Package supervise owns the top-level worker process tree. The coordinator
// spawns the worker as a process-group leader so termination signals reach
// every descendant, waits out a grace period after forwarding a shutdown
// request, and escalates to forced termination when the grace period expires.
package supervise

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"

	"tsmirror/pkg/types"
)

// DefaultGracePeriod bounds how long the worker gets to exit voluntarily
// after a termination request before the group is killed.
const DefaultGracePeriod = 5 * time.Second

// ErrForcedTermination is returned when the worker outlived the grace period
// and had to be killed.
var ErrForcedTermination = errors.New("worker did not exit within grace period, force-terminated")

// Coordinator spawns and supervises the worker process.
type Coordinator struct {
	// Command and Args describe the worker invocation.
	Command string
	Args    []string

	// GracePeriod overrides DefaultGracePeriod. Zero or negative values fall
	// back to the default.
	GracePeriod time.Duration

	// Stdin, Stdout and Stderr are passed to the worker unmodified.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives supervision diagnostics.
	Logger *log.Logger
}

// Run spawns the worker and blocks until it exits. A termination signal to
// the coordinator (or ctx cancellation) is forwarded to the worker's whole
// process group; if the worker exits within the grace period Run returns 0,
// otherwise the group is killed and Run returns 1 with ErrForcedTermination.
// A worker that exits on its own yields its own exit code.
func (c *Coordinator) Run(ctx context.Context) (types.ExitCode, error) {
	cmd := exec.Command(c.Command, c.Args...)
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("start worker %q: %w", c.Command, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, terminationSignals()...)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case waitErr := <-done:
		// The worker exited on its own; mirror its exit code.
		return types.FromWaitError(waitErr), nil

	case <-ctx.Done():
		return c.shutdown(cmd, done, gracefulSignal())

	case sig := <-sigCh:
		return c.shutdown(cmd, done, sig)
	}
}

// shutdown forwards sig to the worker's process group and enforces the grace
// period.
func (c *Coordinator) shutdown(cmd *exec.Cmd, done <-chan error, sig os.Signal) (types.ExitCode, error) {
	c.Logger.Info("forwarding termination signal to worker", "signal", sig)
	if err := signalGroup(cmd.Process, sig); err != nil {
		c.Logger.Error("signal worker group", "err", err)
	}

	grace := c.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return 0, nil
	case <-timer.C:
		c.Logger.Warn("grace period expired, killing worker group", "grace", grace)
		if err := killGroup(cmd.Process); err != nil {
			c.Logger.Error("kill worker group", "err", err)
		}
		<-done
		return 1, ErrForcedTermination
	}
}
