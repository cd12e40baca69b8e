// SPDX-License-Identifier: MPL-2.0

// Package watch keeps the output tree synchronized with source changes. A
// Watcher runs one full batch build, then monitors the source root with
// fsnotify and recompiles exactly the file named by each add/change event —
// no rescans and no debouncing; redundant compiles are cheap because writes
// are content-stable.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"tsmirror/internal/compile"
	"tsmirror/internal/config"
	"tsmirror/internal/rewrite"
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// SourceRoot is the directory to watch, recursively.
		SourceRoot string

		// Excludes is the rule set shared with the batch enumerator. A path
		// matching it never triggers a compile, and excluded directories are
		// not registered with the watcher at all.
		Excludes config.ExcludeRules

		// Builder runs the initial batch pass and supplies the Compiler for
		// per-event compiles.
		Builder *compile.Builder

		// Logger receives watcher diagnostics.
		Logger *log.Logger
	}

	// Watcher monitors the source tree and compiles changed files
	// incrementally. Run must be called exactly once.
	Watcher struct {
		cfg     Config
		fsw     *fsnotify.Watcher
		root    string
		started atomic.Bool

		// locks serializes compiles per output path so at most one write is
		// pending per emitted file at any instant. Compiles of distinct
		// files stay unordered with respect to each other.
		locks sync.Map // output path -> *sync.Mutex
		wg    sync.WaitGroup
	}
)

// New creates a Watcher rooted at cfg.SourceRoot and registers every
// non-excluded directory beneath it for monitoring.
func New(cfg Config) (*Watcher, error) {
	root, err := filepath.Abs(cfg.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve source root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{cfg: cfg, fsw: fsw, root: root}
	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			cfg.Logger.Error("close after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run performs the initial batch build, then processes filesystem events
// until ctx is cancelled. The batch is guaranteed to complete before any
// watch-triggered compile is issued. Run returns nil on clean cancellation
// and propagates only fatal watcher errors; ordinary watcher errors are
// logged and the loop continues.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	defer func() {
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.cfg.Logger.Error("close fsnotify", "err", closeErr)
		}
		w.wg.Wait()
	}()

	if _, err := w.cfg.Builder.Build(ctx); err != nil {
		return fmt.Errorf("watch: initial build: %w", err)
	}
	w.cfg.Logger.Info("watching for changes", "root", w.root)

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}
			w.handleEvent(ctx, evt)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.cfg.Logger.Error("watcher error", "err", err)
		}
	}
}

// handleEvent dispatches a single fsnotify event: new directories extend the
// recursive watch, add/change events on non-ignored source files trigger one
// compile, removals are merely noted (outputs are never deleted).
func (w *Watcher) handleEvent(ctx context.Context, evt fsnotify.Event) {
	rel, err := filepath.Rel(w.root, evt.Name)
	if err != nil {
		rel = evt.Name
	}

	if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
		w.cfg.Logger.Debug("source removed", "file", rel)
		return
	}
	if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
		return
	}

	info, statErr := os.Stat(evt.Name)
	if statErr != nil {
		// The path vanished between the event and the stat; the follow-up
		// remove event covers it.
		return
	}

	if info.IsDir() {
		if evt.Has(fsnotify.Create) {
			w.maybeAddDir(evt.Name, rel)
		}
		return
	}

	if w.Ignored(rel, false) {
		return
	}
	w.dispatch(ctx, evt.Name)
}

// dispatch issues one compile for file. Compiles are issued in event order;
// the per-output-path lock keeps same-file compiles from overlapping while
// leaving distinct files free to run concurrently.
func (w *Watcher) dispatch(ctx context.Context, file string) {
	outPath, err := w.cfg.Builder.Compiler.OutputPath(file)
	if err != nil {
		w.cfg.Logger.Error("compile failed", "file", file, "err", err)
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		muAny, _ := w.locks.LoadOrStore(outPath, &sync.Mutex{})
		mu := muAny.(*sync.Mutex)
		mu.Lock()
		defer mu.Unlock()

		if err := w.cfg.Builder.Compiler.CompileFile(ctx, file); err != nil {
			w.cfg.Logger.Error("compile failed", "file", file, "err", err)
		}
	}()
}

// Ignored is the watcher's ignore predicate. A path is ignored when it
// matches the exclude rules, or when it is a file that is dot-prefixed, a
// declaration file, or carries a non-source extension. Directories are only
// ignored by exclude rules, so traversal reaches nested source files.
func (w *Watcher) Ignored(rel string, isDir bool) bool {
	if w.cfg.Excludes.Match(rel) {
		return true
	}
	if isDir {
		return w.cfg.Excludes.Match(rel + "/")
	}
	name := filepath.Base(rel)
	if strings.HasPrefix(name, ".") {
		return true
	}
	if rewrite.IsDeclarationFile(name) {
		return true
	}
	return !rewrite.IsSourceExt(filepath.Ext(name))
}

// addDirectories walks the source root and registers every non-excluded
// directory with fsnotify. Inaccessible paths are skipped with a log line
// rather than aborting the walk.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.cfg.Logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		if rel != "." && w.Ignored(rel, true) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk source tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir extends the recursive watch to a directory created after the
// initial walk, so nested source files added later keep triggering compiles.
func (w *Watcher) maybeAddDir(path, rel string) {
	if w.Ignored(rel, true) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.cfg.Logger.Error("add new directory", "path", path, "err", err)
	}
}
