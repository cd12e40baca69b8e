// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"tsmirror/internal/config"
	"tsmirror/internal/rewrite"
)

// Builder enumerates every compilable source file under the source root and
// drives the Compiler over all of them concurrently. A single file's failure
// is logged and counted but never aborts the batch.
type Builder struct {
	Compiler *Compiler
	Excludes config.ExcludeRules
	Logger   *log.Logger
}

// Build runs one full batch pass and returns the number of files processed.
// It fails only when enumeration itself fails; per-file compile errors are
// reported through the logger and reflected in the failure count log line.
func (b *Builder) Build(ctx context.Context) (int, error) {
	files, err := b.enumerate()
	if err != nil {
		return 0, err
	}

	// No concurrency cap: compiles are I/O-bound and each targets a distinct
	// output path, so the filesystem is the only effective limit.
	var failed atomic.Int64
	g := new(errgroup.Group)
	for _, file := range files {
		g.Go(func() error {
			if compileErr := b.Compiler.CompileFile(ctx, file); compileErr != nil {
				failed.Add(1)
				b.Logger.Error("compile failed", "file", b.Compiler.display(file), "err", compileErr)
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures are counted

	if n := failed.Load(); n > 0 {
		b.Logger.Warn("batch finished with failures", "files", len(files), "failed", n)
	} else {
		b.Logger.Info("batch finished", "files", len(files))
	}
	return len(files), nil
}

// enumerate walks the source root collecting source files, honouring the
// exclude rules for both directories and files. Declaration files and
// dot-prefixed files are never compiled.
func (b *Builder) enumerate() ([]string, error) {
	var files []string
	root := b.Compiler.SourceRoot

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if b.Excludes.Match(rel) || b.Excludes.Match(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") || rewrite.IsDeclarationFile(name) {
			return nil
		}
		if !rewrite.IsSourceExt(filepath.Ext(name)) {
			return nil
		}
		if b.Excludes.Match(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("enumerate sources under %s: %w", root, walkErr)
	}
	return files, nil
}
