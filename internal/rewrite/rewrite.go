// SPDX-License-Identifier: MPL-2.0

// Package rewrite maps import specifiers found in compiled code to exact
// loadable paths. Emitted modules are loaded by a runtime that performs no
// extension or index resolution, so every relative specifier must name the
// emitted file precisely, while bare package specifiers stay untouched for
// the standard dependency-resolution mechanism.
package rewrite

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// EmittedExt is the extension of emitted module files.
const EmittedExt = ".js"

// SourceExts are the extensions recognized as compilable source files, in
// resolution-preference order.
var SourceExts = []string{".ts", ".tsx", ".mts", ".cts"}

// barePackage matches external dependency specifiers: an optional scope
// segment plus a package-name segment, with no path separators beyond the
// scope's own.
var barePackage = regexp.MustCompile(`^(@[^/]+/)?[^./][^/]*$`)

// ResolveError reports an import specifier that could not be resolved to an
// on-disk file. It is fatal for the importing file's compile but never for
// the batch.
type ResolveError struct {
	Specifier string
	FromFile  string
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve import %q from %s", e.Specifier, e.FromFile)
}

// IsSourceExt reports whether ext is a recognized source extension.
func IsSourceExt(ext string) bool {
	for _, s := range SourceExts {
		if ext == s {
			return true
		}
	}
	return false
}

// IsDeclarationFile reports whether name is a declaration-only file. Such
// files carry a source extension but must never be compiled.
func IsDeclarationFile(name string) bool {
	return strings.HasSuffix(name, ".d.ts") || strings.HasSuffix(name, ".d.mts") || strings.HasSuffix(name, ".d.cts")
}

// Rewrite maps specifier, as found in the file fromFile, to a specifier that
// is directly loadable from the emitted output tree. fromFile anchors
// relative resolution; because source and output trees mirror each other, the
// rewritten specifier is valid at the same relative position in either tree.
//
// Specifiers with an explicit non-source extension and bare package
// specifiers pass through unchanged. Everything else must resolve to an
// on-disk file or the rewrite fails with a *ResolveError.
func Rewrite(specifier, fromFile string) (string, error) {
	if ext := path.Ext(specifier); ext != "" && !IsSourceExt(ext) {
		return specifier, nil
	}
	if barePackage.MatchString(specifier) {
		return specifier, nil
	}

	resolved, viaIndex, err := resolve(specifier, fromFile)
	if err != nil {
		return "", err
	}

	// A specifier resolving into a dependency-installation directory is an
	// external dependency reached through a local re-export or symlink; the
	// package loader resolves it without our help.
	if inDependencyDir(resolved) {
		return specifier, nil
	}

	switch {
	case viaIndex:
		return specifier + "/index" + EmittedExt, nil
	case IsSourceExt(path.Ext(specifier)):
		return strings.TrimSuffix(specifier, path.Ext(specifier)) + EmittedExt, nil
	default:
		return specifier + EmittedExt, nil
	}
}

// resolve locates the on-disk file a specifier refers to, trying the literal
// path, then source-extension suffixes, then directory index files, all
// relative to the directory of fromFile. The second return value reports
// whether resolution went through an index file.
func resolve(specifier, fromFile string) (string, bool, error) {
	base := filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(specifier))

	if isFile(base) {
		return base, false, nil
	}
	for _, ext := range SourceExts {
		if cand := base + ext; isFile(cand) {
			return cand, false, nil
		}
	}
	for _, ext := range SourceExts {
		if cand := filepath.Join(base, "index"+ext); isFile(cand) {
			return cand, true, nil
		}
	}
	return "", false, &ResolveError{Specifier: specifier, FromFile: fromFile}
}

// isFile reports whether p is an existing regular file.
func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// inDependencyDir reports whether the resolved path, after following
// symlinks, has a node_modules path segment.
func inDependencyDir(resolved string) bool {
	p := resolved
	if real, err := filepath.EvalSymlinks(resolved); err == nil {
		p = real
	}
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == "node_modules" {
			return true
		}
	}
	return false
}
