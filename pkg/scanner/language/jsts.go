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

// jstsScanner extracts imports and callsites from JavaScript/TypeScript
// source using regular expressions, as permitted by spec §9 ("JS/TS
// extraction MAY use regex rather than a full parser").
type jstsScanner struct{}

func NewJSTS() Scanner { return jstsScanner{} }

func (jstsScanner) Extensions() []string {
	return []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}
}

var (
	jsImportDefaultRe = regexp.MustCompile(`^\s*import\s+(\w+)\s+from\s+['"]([^'"]+)['"]`)
	jsImportNamedRe   = regexp.MustCompile(`^\s*import\s*\{([^}]*)\}\s*from\s*['"]([^'"]+)['"]`)
	jsImportSideFxRe  = regexp.MustCompile(`^\s*import\s*['"]([^'"]+)['"]`)
	jsImportStarRe    = regexp.MustCompile(`^\s*import\s*\*\s*as\s+(\w+)\s*from\s*['"]([^'"]+)['"]`)
	jsRequireRe       = regexp.MustCompile(`(?:const|let|var)\s+(\w+|\{[^}]*\})\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)
	jsClassRe         = regexp.MustCompile(`^\s*(?:export\s+(?:default\s+)?)?class\s+(\w+)(?:\s+extends\s+(\w+))?`)
	jsCallRe          = regexp.MustCompile(`([\w\$]+(?:\.[\w\$]+)*)\s*\(`)
	jsControlKeywords = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true, "catch": true,
		"function": true, "return": true,
	}
)

func (jstsScanner) Scan(path string, content []byte) (FileRecord, error) {
	rec := FileRecord{Path: path}
	lines := strings.Split(string(content), "\n")

	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(trimmed), "//") {
			continue
		}

		switch {
		case jsImportNamedRe.MatchString(trimmed):
			m := jsImportNamedRe.FindStringSubmatch(trimmed)
			module := m[2]
			for _, item := range strings.Split(m[1], ",") {
				name := strings.TrimSpace(item)
				if name == "" {
					continue
				}
				alias := name
				if parts := strings.Split(name, " as "); len(parts) == 2 {
					alias = strings.TrimSpace(parts[1])
				}
				rec.Imports = append(rec.Imports, ImportRecord{Module: module, Alias: alias, Kind: ImportNamed})
			}
		case jsImportStarRe.MatchString(trimmed):
			m := jsImportStarRe.FindStringSubmatch(trimmed)
			rec.Imports = append(rec.Imports, ImportRecord{Module: m[2], Alias: m[1], Kind: ImportNamed})
		case jsImportDefaultRe.MatchString(trimmed):
			m := jsImportDefaultRe.FindStringSubmatch(trimmed)
			rec.Imports = append(rec.Imports, ImportRecord{Module: m[2], Alias: m[1], Kind: ImportDefault})
		case jsImportSideFxRe.MatchString(trimmed):
			m := jsImportSideFxRe.FindStringSubmatch(trimmed)
			rec.Imports = append(rec.Imports, ImportRecord{Module: m[1], Kind: ImportSideEffect})
		case jsRequireRe.MatchString(trimmed):
			m := jsRequireRe.FindStringSubmatch(trimmed)
			rec.Imports = append(rec.Imports, ImportRecord{
				Module: m[2],
				Alias:  strings.Trim(m[1], "{} "),
				Kind:   ImportRequire,
			})
		}

		if m := jsClassRe.FindStringSubmatch(trimmed); m != nil {
			var parents []string
			if m[2] != "" {
				parents = append(parents, m[2])
			}
			rec.Classes = append(rec.Classes, ClassRecord{Name: m[1], Parents: parents})
			continue
		}

		for _, m := range jsCallRe.FindAllStringSubmatch(trimmed, -1) {
			full := m[1]
			if jsControlKeywords[full] {
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
