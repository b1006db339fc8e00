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
	"regexp"
	"strings"
)

// pythonScanner extracts imports, calls and class definitions from
// Python source with a line-oriented tokenizer rather than a real
// parser (see the package doc comment). It is intentionally tolerant
// of syntax it cannot fully model: malformed lines are skipped, never
// fatal.
type pythonScanner struct{}

func NewPython() Scanner { return pythonScanner{} }

func (pythonScanner) Extensions() []string { return []string{".py"} }

var (
	pyImportRe     = regexp.MustCompile(`^\s*import\s+([\w\.]+)(?:\s+as\s+(\w+))?`)
	pyFromImportRe = regexp.MustCompile(`^\s*from\s+(\.*[\w\.]*)\s+import\s+(.+)`)
	pyFromItemRe   = regexp.MustCompile(`([\w\*]+)(?:\s+as\s+(\w+))?`)
	pyClassRe      = regexp.MustCompile(`^\s*class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	pyCallRe       = regexp.MustCompile(`([\w]+(?:\.[\w]+)*)\s*\(`)
	pyDefRe        = regexp.MustCompile(`^\s*(?:async\s+)?def\s+\w+`)
)

func (pythonScanner) Scan(path string, content []byte) (FileRecord, error) {
	rec := FileRecord{Path: path}
	lines := strings.Split(string(content), "\n")

	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if idx := strings.Index(trimmed, "#"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		if strings.TrimSpace(trimmed) == "" {
			continue
		}

		if m := pyFromImportRe.FindStringSubmatch(trimmed); m != nil {
			module := m[1]
			kind := ImportFrom
			if strings.HasPrefix(module, ".") {
				kind = ImportRelative
			}
			for _, item := range strings.Split(m[2], ",") {
				sub := pyFromItemRe.FindStringSubmatch(strings.TrimSpace(item))
				if sub == nil {
					continue
				}
				alias := sub[2]
				if alias == "" {
					alias = sub[1]
				}
				rec.Imports = append(rec.Imports, ImportRecord{
					Module: module,
					Alias:  alias,
					Kind:   kind,
				})
			}
			continue
		}

		if m := pyImportRe.FindStringSubmatch(trimmed); m != nil {
			alias := m[2]
			if alias == "" {
				alias = m[1]
			}
			rec.Imports = append(rec.Imports, ImportRecord{
				Module: m[1],
				Alias:  alias,
				Kind:   ImportAbsolute,
			})
			continue
		}

		if m := pyClassRe.FindStringSubmatch(trimmed); m != nil {
			var parents []string
			for _, p := range strings.Split(m[2], ",") {
				p = strings.TrimSpace(p)
				if p != "" && p != "object" {
					parents = append(parents, p)
				}
			}
			rec.Classes = append(rec.Classes, ClassRecord{Name: m[1], Parents: parents})
			continue
		}

		if pyDefRe.MatchString(trimmed) {
			continue // definition sites are not callsites
		}

		for _, m := range pyCallRe.FindAllStringSubmatch(trimmed, -1) {
			full := m[1]
			if pyKeywords[full] {
				continue
			}
			if dot := strings.LastIndex(full, "."); dot >= 0 {
				rec.Calls = append(rec.Calls, CallRecord{
					Name:   full[dot+1:],
					Kind:   CallMethod,
					Object: full[:dot],
				})
			} else {
				rec.Calls = append(rec.Calls, CallRecord{Name: full, Kind: CallFunction})
			}
		}
	}

	return rec, nil
}

var pyKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "with": true, "except": true,
	"return": true, "print": true, "elif": true,
}
