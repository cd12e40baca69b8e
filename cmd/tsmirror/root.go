// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "tsmirror",
		Short: "Incremental source-to-output compilation pipeline",
		Long: TitleStyle.Render("tsmirror") + SubtitleStyle.Render(" - incremental source-to-output compilation") + `

tsmirror compiles a tree of source modules into an output directory,
rewriting cross-module import specifiers so the emitted code is directly
loadable without further resolution. It can watch the source tree and
recompile changed files incrementally, and it supervises an external
declaration generator alongside the main pipeline.

` + SubtitleStyle.Render("Examples:") + `
  tsmirror build --src src --out dist                 Compile once
  tsmirror build --src src --out dist --watch         Compile and keep in sync
  tsmirror run --src src --out dist --watch           Same, under a supervised
                                                      process group`,
	}
)

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// newLogger builds the process-wide logger. Verbose lowers the level to
// Debug so per-file skip decisions become visible.
func newLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "tsmirror"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
