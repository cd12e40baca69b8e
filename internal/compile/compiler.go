// SPDX-License-Identifier: MPL-2.0

// Package compile drives the per-file compilation pipeline: transform one
// source file through the opaque engine, rewrite its import specifiers, and
// mirror the result into the output tree with content-stable writes.
package compile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"tsmirror/internal/rewrite"
	"tsmirror/internal/transform"
)

// The two sequential whole-text passes over the transformed code. The first
// covers quoted import syntax (static imports, re-exports, side-effect and
// dynamic imports); the second covers quoted require calls. Together they
// visit every specifier occurrence exactly once.
var (
	importPattern  = regexp.MustCompile(`(\bimport\s*\(?\s*|\bfrom\s*)(['"])([^'"\n]+)(['"])`)
	requirePattern = regexp.MustCompile(`(\brequire\s*\(\s*)(['"])([^'"\n]+)(['"])`)
)

// Compiler compiles single source files into the output tree. It is safe for
// concurrent use across distinct files; the mapping from source path to
// output path is injective, so concurrent compiles never share an output.
type Compiler struct {
	// SourceRoot and OutputRoot are absolute directory paths. The output
	// tree mirrors the source tree's structure beneath them.
	SourceRoot string
	OutputRoot string

	// Engine performs the opaque syntax transformation.
	Engine transform.Engine

	// Options are passed through to the engine untouched.
	Options transform.Options

	// Logger receives per-file progress and skip diagnostics.
	Logger *log.Logger
}

// OutputPath returns the emitted path for a source file: the file's path
// relative to SourceRoot mirrored under OutputRoot with the extension swapped
// to the emitted extension.
func (c *Compiler) OutputPath(file string) (string, error) {
	rel, err := filepath.Rel(c.SourceRoot, file)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", file, err)
	}
	ext := filepath.Ext(rel)
	return filepath.Join(c.OutputRoot, strings.TrimSuffix(rel, ext)+rewrite.EmittedExt), nil
}

// CompileFile compiles one source file and writes the emitted module (and
// source map, when the engine produced one) only if the content differs from
// what is already on disk. Re-running on unchanged input alters neither
// output bytes nor modification times.
//
// The returned error covers engine rejections, unresolvable imports, and
// filesystem failures; callers running batches log it and continue with
// sibling files.
func (c *Compiler) CompileFile(ctx context.Context, file string) error {
	outPath, err := c.OutputPath(file)
	if err != nil {
		return err
	}
	mapPath := outPath + ".map"

	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	res, err := c.Engine.Transform(ctx, file, src, c.Options)
	if err != nil {
		return err
	}

	code, err := c.rewriteSpecifiers(res.Code, file)
	if err != nil {
		return err
	}

	if res.SourceMap != "" {
		code = strings.TrimRight(code, "\n") + "\n//# sourceMappingURL=" + filepath.Base(mapPath) + "\n"
	}

	wrote, err := writeIfChanged(outPath, code)
	if err != nil {
		return err
	}
	if res.SourceMap != "" {
		if _, err := writeIfChanged(mapPath, res.SourceMap); err != nil {
			return err
		}
	}

	if wrote {
		c.Logger.Info("compiled", "file", c.display(file), "out", c.display(outPath))
	} else {
		c.Logger.Debug("unchanged, skipped write", "file", c.display(file))
	}
	return nil
}

// rewriteSpecifiers applies the import rewriter to every specifier matched by
// the two scan passes. The first unresolvable specifier fails the whole file;
// the remaining occurrences are left as matched.
func (c *Compiler) rewriteSpecifiers(code, fromFile string) (string, error) {
	var firstErr error
	for _, re := range []*regexp.Regexp{importPattern, requirePattern} {
		code = re.ReplaceAllStringFunc(code, func(m string) string {
			groups := re.FindStringSubmatch(m)
			spec, err := rewrite.Rewrite(groups[3], fromFile)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return m
			}
			return groups[1] + groups[2] + spec + groups[4]
		})
		if firstErr != nil {
			return "", firstErr
		}
	}
	return code, nil
}

// display shortens a path for log output, preferring the source-root-relative
// form.
func (c *Compiler) display(path string) string {
	if rel, err := filepath.Rel(c.SourceRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	if rel, err := filepath.Rel(c.OutputRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// writeIfChanged writes content to path unless the file already holds the
// same text modulo surrounding whitespace. It reports whether a write
// happened.
func writeIfChanged(path, content string) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && strings.TrimSpace(string(existing)) == strings.TrimSpace(content) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create output directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
