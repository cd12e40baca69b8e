// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeScript writes an executable shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestNewCommandEngineMissingBinary(t *testing.T) {
	t.Parallel()

	if _, err := NewCommandEngine("tsmirror-no-such-transformer"); err == nil {
		t.Fatal("NewCommandEngine() = nil error for missing binary")
	}
}

func TestCommandEngineTransform(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	dir := t.TempDir()
	// Uppercases stdin and wraps it in the JSON protocol. Keeping the body
	// on one line avoids embedded-newline escaping in the JSON string.
	script := writeScript(t, dir, "upper.sh",
		`printf '{"code":"%s","map":"{}"}' "$(tr a-z A-Z)"`)

	e := &CommandEngine{Path: script}
	res, err := e.Transform(context.Background(), "in.ts", []byte("abc"), nil)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if res.Code != "ABC" {
		t.Errorf("Code = %q, want %q", res.Code, "ABC")
	}
	if res.SourceMap != "{}" {
		t.Errorf("SourceMap = %q, want %q", res.SourceMap, "{}")
	}
}

func TestCommandEngineTransformFailure(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	dir := t.TempDir()
	script := writeScript(t, dir, "fail.sh", `echo "syntax error" >&2; exit 1`)

	e := &CommandEngine{Path: script}
	_, err := e.Transform(context.Background(), "in.ts", []byte("abc"), nil)
	if err == nil {
		t.Fatal("Transform() = nil error for failing transformer")
	}
	if !strings.Contains(err.Error(), "syntax error") {
		t.Errorf("error %q does not include transformer stderr", err)
	}
}

func TestPassthrough(t *testing.T) {
	t.Parallel()

	res, err := Passthrough{}.Transform(context.Background(), "in.ts", []byte("const x = 1\n"), nil)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if res.Code != "const x = 1\n" {
		t.Errorf("Code = %q, want source text", res.Code)
	}
	if res.SourceMap != "" {
		t.Errorf("SourceMap = %q, want empty", res.SourceMap)
	}
}
