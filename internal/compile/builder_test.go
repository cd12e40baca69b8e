// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"tsmirror/internal/config"
)

func newBuilder(t *testing.T, engine *fakeEngine, excludes config.ExcludeRules) (*Builder, string, string) {
	t.Helper()
	c, srcRoot, outRoot := newCompiler(t, engine)
	return &Builder{
		Compiler: c,
		Excludes: excludes,
		Logger:   log.New(io.Discard),
	}, srcRoot, outRoot
}

func TestBuildCompilesAllSources(t *testing.T) {
	t.Parallel()

	b, srcRoot, outRoot := newBuilder(t, &fakeEngine{}, config.DefaultExcludeRules())
	writeSource(t, srcRoot, "a.ts", "export {}\n")
	writeSource(t, srcRoot, "sub/b.tsx", "export {}\n")
	writeSource(t, srcRoot, "c.txt", "not a source\n")
	writeSource(t, srcRoot, "types.d.ts", "declare const x: number\n")
	writeSource(t, srcRoot, ".hidden.ts", "export {}\n")

	n, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Build() = %d files, want 2", n)
	}
	for _, rel := range []string{"a.js", "sub/b.js"} {
		if _, err := os.Stat(filepath.Join(outRoot, filepath.FromSlash(rel))); err != nil {
			t.Errorf("expected output %s missing: %v", rel, err)
		}
	}
	for _, rel := range []string{"c.js", "types.d.js", ".hidden.js"} {
		if _, err := os.Stat(filepath.Join(outRoot, filepath.FromSlash(rel))); !os.IsNotExist(err) {
			t.Errorf("unexpected output %s present", rel)
		}
	}
}

func TestBuildIsolatesFailures(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{failOn: "broken"}
	b, srcRoot, outRoot := newBuilder(t, engine, config.DefaultExcludeRules())
	writeSource(t, srcRoot, "ok1.ts", "export {}\n")
	writeSource(t, srcRoot, "broken.ts", "export {}\n")
	writeSource(t, srcRoot, "ok2.ts", "export {}\n")

	n, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if n != 3 {
		t.Errorf("Build() = %d files, want 3", n)
	}
	for _, rel := range []string{"ok1.js", "ok2.js"} {
		if _, err := os.Stat(filepath.Join(outRoot, rel)); err != nil {
			t.Errorf("sibling output %s missing after isolated failure: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outRoot, "broken.js")); !os.IsNotExist(err) {
		t.Error("failing file produced output")
	}
}

func TestBuildHonoursExcludeRules(t *testing.T) {
	t.Parallel()

	rules, err := config.NewExcludeRules([]string{"vendor/**", "**/*.spec.ts"})
	if err != nil {
		t.Fatalf("NewExcludeRules() error: %v", err)
	}
	engine := &fakeEngine{}
	b, srcRoot, outRoot := newBuilder(t, engine, rules)
	writeSource(t, srcRoot, "app.ts", "export {}\n")
	writeSource(t, srcRoot, "app.spec.ts", "export {}\n")
	writeSource(t, srcRoot, "vendor/lib.ts", "export {}\n")

	n, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Build() = %d files, want 1", n)
	}
	if engine.callCount() != 1 {
		t.Errorf("engine invoked %d times, want 1", engine.callCount())
	}
	if _, err := os.Stat(filepath.Join(outRoot, "app.js")); err != nil {
		t.Errorf("expected output missing: %v", err)
	}
	for _, rel := range []string{"app.spec.js", "vendor/lib.js"} {
		if _, err := os.Stat(filepath.Join(outRoot, filepath.FromSlash(rel))); !os.IsNotExist(err) {
			t.Errorf("excluded file %s was compiled", rel)
		}
	}
}
