/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package language

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/flowforge/pipeline-core/internal/metrics"
)

// Registry dispatches file extensions to the Scanner that handles them.
type Registry struct {
	byExt map[string]Scanner
}

// NewRegistry returns a Registry pre-populated with the Python, Go, and
// JS/TS extractors.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Scanner)}
	r.Register(NewPython())
	r.Register(NewGo())
	r.Register(NewJSTS())
	return r
}

func (r *Registry) Register(s Scanner) {
	for _, ext := range s.Extensions() {
		r.byExt[ext] = s
	}
}

func (r *Registry) For(path string) (Scanner, bool) {
	s, ok := r.byExt[filepath.Ext(path)]
	return s, ok
}

// DiscoverOptions controls file-tree walking (spec §4.2).
type DiscoverOptions struct {
	Include  []string // glob patterns; empty means "match everything scannable"
	Exclude  []string
	MaxDepth int // 0 means unlimited, relative to root
}

// Discover walks root and returns every file path whose extension has a
// registered scanner and that matches Include/Exclude/MaxDepth.
func (r *Registry) Discover(root string, opts DiscoverOptions) ([]string, error) {
	include := compileGlobs(opts.Include)
	exclude := compileGlobs(opts.Exclude)

	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // resource errors per-file are skipped, not fatal
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		if opts.MaxDepth > 0 && strings.Count(rel, string(filepath.Separator)) >= opts.MaxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := r.For(path); !ok {
			return nil
		}
		if matchesAny(exclude, rel) {
			return nil
		}
		if len(include) > 0 && !matchesAny(include, rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

func compileGlobs(patterns []string) []glob.Glob {
	var out []glob.Glob
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			continue
		}
		out = append(out, g)
	}
	return out
}

func matchesAny(globs []glob.Glob, path string) bool {
	normalized := filepath.ToSlash(path)
	for _, g := range globs {
		if g.Match(normalized) {
			return true
		}
	}
	return false
}

// ScanFile dispatches a single file to its scanner, logging (not
// returning) resource errors so batch callers can continue (§4.2,
// §7: "Failures per-file are logged and do not abort the batch").
func (r *Registry) ScanFile(logger *zap.Logger, path string) (FileRecord, bool) {
	scanner, ok := r.For(path)
	if !ok {
		return FileRecord{}, false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("skipping unreadable source file", zap.String("path", path), zap.Error(err))
		metrics.ScansTotal.WithLabelValues("language", "error").Inc()
		return FileRecord{}, false
	}
	rec, err := scanner.Scan(path, content)
	if err != nil {
		logger.Warn("skipping file with scan error", zap.String("path", path), zap.Error(err))
		metrics.ScansTotal.WithLabelValues("language", "error").Inc()
		return FileRecord{}, false
	}
	metrics.ScansTotal.WithLabelValues("language", "success").Inc()
	return rec, true
}

// ScanTree discovers and scans every matching file under root.
func (r *Registry) ScanTree(logger *zap.Logger, root string, opts DiscoverOptions) ([]FileRecord, error) {
	paths, err := r.Discover(root, opts)
	if err != nil {
		return nil, err
	}
	var out []FileRecord
	for _, p := range paths {
		if rec, ok := r.ScanFile(logger, p); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
