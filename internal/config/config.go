// SPDX-License-Identifier: MPL-2.0

// Package config loads the run configuration for tsmirror: the exclude rule
// set from the project's tsconfig-style declaration config and the opaque
// transform-options file. Both are loaded once per run and immutable after.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"tsmirror/internal/transform"
)

// defaultExcludes are applied when the project configuration declares no
// exclusions of its own. Dependency installations are never compiled.
var defaultExcludes = []string{
	"node_modules/**",
	"**/node_modules/**",
}

// ExcludeRules is an ordered, immutable set of glob patterns shared by the
// batch enumerator and the watcher's ignore predicate.
type ExcludeRules struct {
	patterns []string
}

// NewExcludeRules validates patterns and builds a rule set. Invalid globs
// fail at construction time rather than silently never matching.
func NewExcludeRules(patterns []string) (ExcludeRules, error) {
	for _, pat := range patterns {
		if _, err := doublestar.Match(pat, ""); err != nil {
			return ExcludeRules{}, fmt.Errorf("invalid exclude pattern %q: %w", pat, err)
		}
	}
	return ExcludeRules{patterns: patterns}, nil
}

// DefaultExcludeRules returns the built-in rule set used when no project
// configuration is available.
func DefaultExcludeRules() ExcludeRules {
	return ExcludeRules{patterns: defaultExcludes}
}

// Match reports whether rel, a path relative to the source root, matches any
// exclude pattern. Separators are normalised so rules match on all platforms.
func (r ExcludeRules) Match(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range r.patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the rule set's patterns.
func (r ExcludeRules) Patterns() []string {
	out := make([]string, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// LoadExcludeRules reads the "exclude" array from a tsconfig-shaped JSON
// config file. A config without an exclude array falls back to the defaults.
func LoadExcludeRules(configPath string) (ExcludeRules, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return ExcludeRules{}, fmt.Errorf("read config %s: %w", configPath, err)
	}

	patterns := v.GetStringSlice("exclude")
	if len(patterns) == 0 {
		return DefaultExcludeRules(), nil
	}
	return NewExcludeRules(patterns)
}

// LoadTransformOptions reads the optional transform-options file into the
// opaque options map handed to the transformation engine. An empty path
// yields nil options.
func LoadTransformOptions(path string) (transform.Options, error) {
	if path == "" {
		return nil, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read transform options %s: %w", path, err)
	}
	return transform.Options(v.AllSettings()), nil
}
