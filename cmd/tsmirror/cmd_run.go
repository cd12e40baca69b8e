// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tsmirror/internal/supervise"
)

var (
	runFlags buildFlagValues

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline under a supervised process group",
		Long: `Spawn the build pipeline as a detached process-group leader and supervise
it. Termination signals sent to tsmirror are forwarded to the whole worker
group; a worker that does not exit within the grace period is killed and
the run fails. A worker that exits on its own yields its own exit code.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSupervised(cmd, &runFlags)
		},
	}
)

func init() {
	registerBuildFlags(runCmd, &runFlags)
}

// runSupervised re-executes this binary's build command as the supervised
// worker, inheriting standard I/O unmodified.
func runSupervised(cmd *cobra.Command, f *buildFlagValues) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate runnable executable: %w", err)
	}

	coordinator := &supervise.Coordinator{
		Command: exe,
		Args:    workerArgs(f),
		Stdin:   cmd.InOrStdin(),
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Logger:  newLogger(f.verbose),
	}

	code, err := coordinator.Run(cmd.Context())
	if err != nil {
		return &ExitError{Code: code, Err: err}
	}
	if !code.IsSuccess() {
		return &ExitError{Code: code}
	}
	return nil
}

// workerArgs rebuilds the build-command argument list from the parsed flags.
func workerArgs(f *buildFlagValues) []string {
	args := []string{"build", "--src", f.srcDir, "--out", f.outDir}
	if f.declConfig != "" {
		args = append(args, "--decl-config", f.declConfig)
	}
	if f.transformOpts != "" {
		args = append(args, "--transform-opts", f.transformOpts)
	}
	if f.declDir != "" {
		args = append(args, "--decl-dir", f.declDir)
	}
	if f.transformer != "" {
		args = append(args, "--transformer", f.transformer)
	}
	if f.watch {
		args = append(args, "--watch")
	}
	if f.verbose {
		args = append(args, "--verbose")
	}
	return args
}
