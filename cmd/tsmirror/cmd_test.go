// SPDX-License-Identifier: MPL-2.0

package main

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestWorkerArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags buildFlagValues
		want  []string
	}{
		{
			name:  "minimal",
			flags: buildFlagValues{srcDir: "src", outDir: "dist"},
			want:  []string{"build", "--src", "src", "--out", "dist"},
		},
		{
			name: "all flags",
			flags: buildFlagValues{
				srcDir:        "src",
				outDir:        "dist",
				declConfig:    "tsconfig.json",
				transformOpts: "opts.json",
				declDir:       "types",
				transformer:   "swc-wrap",
				watch:         true,
				verbose:       true,
			},
			want: []string{
				"build", "--src", "src", "--out", "dist",
				"--decl-config", "tsconfig.json",
				"--transform-opts", "opts.json",
				"--decl-dir", "types",
				"--transformer", "swc-wrap",
				"--watch", "--verbose",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := workerArgs(&tt.flags); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("workerArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeclOutDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags buildFlagValues
		want  string
	}{
		{
			name:  "defaults to project root",
			flags: buildFlagValues{declConfig: filepath.Join("proj", "tsconfig.json")},
			want:  "proj",
		},
		{
			name:  "relative sub-path under project root",
			flags: buildFlagValues{declConfig: filepath.Join("proj", "tsconfig.json"), declDir: "types"},
			want:  filepath.Join("proj", "types"),
		},
		{
			name:  "absolute path wins",
			flags: buildFlagValues{declConfig: filepath.Join("proj", "tsconfig.json"), declDir: filepath.Join(string(filepath.Separator), "abs", "types")},
			want:  filepath.Join(string(filepath.Separator), "abs", "types"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := declOutDir(&tt.flags); got != tt.want {
				t.Errorf("declOutDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildCommandRequiresSrcAndOut(t *testing.T) {
	for _, flag := range []string{"src", "out"} {
		f := buildCmd.Flags().Lookup(flag)
		if f == nil {
			t.Fatalf("build command missing --%s flag", flag)
		}
		required := f.Annotations[`cobra_annotation_bash_completion_one_required_flag`]
		if len(required) == 0 || required[0] != "true" {
			t.Errorf("--%s is not marked required", flag)
		}
	}
}
