// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tsmirror/internal/compile"
	"tsmirror/internal/config"
	"tsmirror/internal/declgen"
	"tsmirror/internal/transform"
	"tsmirror/internal/watch"
)

// buildFlagValues carries the pipeline flags shared by the build and run
// commands.
type buildFlagValues struct {
	srcDir        string
	outDir        string
	declConfig    string
	transformOpts string
	declDir       string
	transformer   string
	watch         bool
	verbose       bool
}

var (
	buildFlags buildFlagValues

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Compile the source tree into the output directory",
		Long: `Compile every source file under --src into a mirrored tree under --out,
rewriting relative import specifiers to exact loadable paths. With --watch
the output tree is kept synchronized with source changes after the initial
batch. With --decl-config an external declaration generator runs alongside
the pipeline: once in batch mode, supervised with automatic restarts in
watch mode.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, &buildFlags)
		},
	}
)

func init() {
	registerBuildFlags(buildCmd, &buildFlags)
}

// registerBuildFlags wires the shared pipeline flags onto cmd.
func registerBuildFlags(cmd *cobra.Command, f *buildFlagValues) {
	cmd.Flags().StringVar(&f.srcDir, "src", "", "source directory to compile (required)")
	cmd.Flags().StringVar(&f.outDir, "out", "", "output directory to mirror compiled files into (required)")
	cmd.Flags().StringVar(&f.declConfig, "decl-config", "", "project config enabling declaration generation")
	cmd.Flags().StringVar(&f.transformOpts, "transform-opts", "", "JSON file overriding default transformation options")
	cmd.Flags().StringVar(&f.declDir, "decl-dir", "", "declaration output location, relative to the project root")
	cmd.Flags().StringVar(&f.transformer, "transformer", "", "external transformer executable (default: passthrough)")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "watch the source tree and recompile on change")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "enable progress and skip logging")

	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("out")
}

// runBuild is the worker entrypoint: one batch pass plus one-shot
// declaration generation, or the watch controller plus a supervised
// declaration generator.
func runBuild(cmd *cobra.Command, f *buildFlagValues) error {
	logger := newLogger(f.verbose)

	srcRoot, err := filepath.Abs(f.srcDir)
	if err != nil {
		return fmt.Errorf("resolve source directory: %w", err)
	}
	outRoot, err := filepath.Abs(f.outDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	if info, statErr := os.Stat(srcRoot); statErr != nil || !info.IsDir() {
		return fmt.Errorf("source directory %s is not a directory", f.srcDir)
	}

	excludes := config.DefaultExcludeRules()
	if f.declConfig != "" {
		if excludes, err = config.LoadExcludeRules(f.declConfig); err != nil {
			return err
		}
	}

	opts, err := config.LoadTransformOptions(f.transformOpts)
	if err != nil {
		return err
	}

	var engine transform.Engine = transform.Passthrough{}
	if f.transformer != "" {
		if engine, err = transform.NewCommandEngine(f.transformer); err != nil {
			return err
		}
	}

	builder := &compile.Builder{
		Compiler: &compile.Compiler{
			SourceRoot: srcRoot,
			OutputRoot: outRoot,
			Engine:     engine,
			Options:    opts,
			Logger:     logger,
		},
		Excludes: excludes,
		Logger:   logger,
	}

	var supervisor *declgen.Supervisor
	if f.declConfig != "" {
		supervisor = &declgen.Supervisor{
			ConfigPath: f.declConfig,
			OutDir:     declOutDir(f),
			Watch:      f.watch,
			Stdout:     cmd.OutOrStdout(),
			Stderr:     cmd.ErrOrStderr(),
			Logger:     logger,
		}
	}

	ctx := cmd.Context()

	if f.watch {
		watcher, watchErr := watch.New(watch.Config{
			SourceRoot: srcRoot,
			Excludes:   excludes,
			Builder:    builder,
			Logger:     logger,
		})
		if watchErr != nil {
			return watchErr
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return watcher.Run(gctx) })
		if supervisor != nil {
			g.Go(func() error { return supervisor.Run(gctx) })
		}
		return g.Wait()
	}

	n, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Compiled %d file(s) into %s\n",
		SuccessStyle.Render("✓"), n, f.outDir)

	if supervisor != nil {
		if err := supervisor.Run(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Declarations emitted to %s\n",
			SuccessStyle.Render("✓"), declOutDir(f))
	}
	return nil
}

// declOutDir resolves the declaration output directory: the --decl-dir
// sub-path relative to the project root (the declaration config's
// directory), defaulting to the project root itself.
func declOutDir(f *buildFlagValues) string {
	root := filepath.Dir(f.declConfig)
	if f.declDir == "" {
		return root
	}
	if filepath.IsAbs(f.declDir) {
		return f.declDir
	}
	return filepath.Join(root, f.declDir)
}
