// SPDX-License-Identifier: MPL-2.0

// Package transform defines the opaque transformation engine the compilation
// pipeline drives. The pipeline never parses source syntax itself; it hands a
// source file to an Engine and receives transformed code plus an optional
// source map back.
package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
)

type (
	// Options are opaque engine options, typically loaded from a
	// transform-options file. The pipeline passes them through untouched.
	Options map[string]any

	// Result is the outcome of transforming one source file. SourceMap is
	// empty when the engine produced no map.
	Result struct {
		Code      string
		SourceMap string
	}

	// Engine transforms the text of one source file. Implementations must be
	// safe for concurrent use; the batch builder calls Transform from many
	// goroutines at once.
	Engine interface {
		Transform(ctx context.Context, path string, src []byte, opts Options) (Result, error)
	}
)

// CommandEngine runs an external transformer executable once per file. The
// source text is written to the transformer's stdin and the transformer
// responds on stdout with a JSON object {"code": "...", "map": "..."}.
// Options are passed as repeated --opt key=value arguments, sorted by key so
// invocations are reproducible.
type CommandEngine struct {
	// Path is the resolved absolute path of the transformer executable.
	Path string
}

// NewCommandEngine resolves bin on PATH. A transformer that cannot be found
// is a startup error: the whole run must abort rather than fail file by file.
func NewCommandEngine(bin string) (*CommandEngine, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("transformer %q not found: %w", bin, err)
	}
	return &CommandEngine{Path: path}, nil
}

// Transform invokes the transformer for a single file.
func (e *CommandEngine) Transform(ctx context.Context, path string, src []byte, opts Options) (Result, error) {
	args := make([]string, 0, 2*len(opts)+1)
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--opt", fmt.Sprintf("%s=%v", k, opts[k]))
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, e.Path, args...)
	cmd.Stdin = bytes.NewReader(src)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return Result{}, fmt.Errorf("transform %s: %s: %w", path, msg, err)
		}
		return Result{}, fmt.Errorf("transform %s: %w", path, err)
	}

	var out struct {
		Code string `json:"code"`
		Map  string `json:"map"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Result{}, fmt.Errorf("transform %s: decode transformer output: %w", path, err)
	}
	return Result{Code: out.Code, SourceMap: out.Map}, nil
}

// Passthrough is an Engine that emits the source text unchanged and produces
// no source map. It is the default when no transformer is configured, and it
// keeps the rewrite-and-mirror pipeline usable on sources that are already
// valid output syntax.
type Passthrough struct{}

// Transform returns the source text as the transformed code.
func (Passthrough) Transform(_ context.Context, _ string, src []byte, _ Options) (Result, error) {
	return Result{Code: string(src)}, nil
}
