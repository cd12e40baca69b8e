// SPDX-License-Identifier: MPL-2.0

// Package declgen supervises the external declaration-generation subprocess.
// In one-shot mode a nonzero exit fails the run; in watch mode the subprocess
// must always be up, so any unexpected exit triggers an unconditional restart
// after a fixed backoff, bounded only by the parent's lifetime.
package declgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"tsmirror/pkg/types"
)

// DefaultBin is the declaration generator invoked when none is configured.
const DefaultBin = "tsc"

// defaultRestartInterval is the fixed pause between an unexpected exit and
// the next spawn in watch mode.
const defaultRestartInterval = 2 * time.Second

// Supervisor runs the declaration generator against a project config,
// emitting declaration files only.
type Supervisor struct {
	// Bin is the generator executable name or path. Empty means DefaultBin.
	Bin string

	// ConfigPath is the project config passed via -p.
	ConfigPath string

	// OutDir is where declaration files are emitted.
	OutDir string

	// Watch selects continuous generation with restart-on-crash supervision.
	Watch bool

	// RestartInterval overrides the fixed backoff between restarts. Zero or
	// negative values fall back to the default.
	RestartInterval time.Duration

	// Stdout and Stderr receive the generator's output streams unmodified.
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives supervision diagnostics.
	Logger *log.Logger
}

// Run resolves the generator executable and supervises it until completion
// (one-shot mode) or context cancellation (watch mode). A generator that
// cannot be found is a startup error and aborts the whole run.
func (s *Supervisor) Run(ctx context.Context) error {
	bin := s.Bin
	if bin == "" {
		bin = DefaultBin
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("declaration generator %q not found: %w", bin, err)
	}

	if !s.Watch {
		return s.runOnce(ctx, path)
	}
	return s.superviseForever(ctx, path)
}

// runOnce performs a single generation pass. The process exit code is the
// verdict: zero succeeds, anything else fails the run.
func (s *Supervisor) runOnce(ctx context.Context, path string) error {
	runErr := s.spawn(ctx, path).Run()
	if runErr == nil {
		return nil
	}
	code := types.FromWaitError(runErr)
	return fmt.Errorf("declaration generation failed (exit code %s)", code)
}

// superviseForever keeps the generator running until ctx is cancelled. There
// is deliberately no retry limit: in a long-running dev loop the generator
// must always be up, and every unexpected exit is answered with a restart
// after the fixed interval.
func (s *Supervisor) superviseForever(ctx context.Context, path string) error {
	interval := s.RestartInterval
	if interval <= 0 {
		interval = defaultRestartInterval
	}

	spawnAndWait := func() error {
		s.Logger.Info("starting declaration generator", "bin", path, "config", s.ConfigPath)
		runErr := s.spawn(ctx, path).Run()
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if runErr == nil {
			runErr = errors.New("declaration generator exited")
		}
		s.Logger.Warn("declaration generator exited unexpectedly, restarting",
			"err", runErr, "backoff", interval)
		return runErr
	}

	err := backoff.Retry(spawnAndWait, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx))
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// spawn builds the generator invocation: project config, declarations-only
// emit into OutDir, continuous mode when watching, stdio passed through.
func (s *Supervisor) spawn(ctx context.Context, path string) *exec.Cmd {
	args := []string{"-p", s.ConfigPath, "--emitDeclarationOnly", "--outDir", s.OutDir}
	if s.Watch {
		args = append(args, "--watch", "--preserveWatchOutput")
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	return cmd
}
