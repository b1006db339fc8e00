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

// Package language implements LanguageScanner: per-language static
// extractors producing raw imports/callsites/classes records from
// source files (spec §4.2). Python uses a lightweight tokenizer
// approximating its import/def/class grammar (Go's standard library
// has no Python AST, so this is a pragmatic stand-in, not the "proper
// AST" the Python reference used on its own source language — see
// DESIGN.md). JS/TS use regex extraction as the spec explicitly
// accepts (§9). Go uses go/parser + go/ast, a genuine AST, since Go is
// this rewrite's native language.
package language

// ImportKind enumerates the shapes an import statement can take across
// the supported ecosystems.
type ImportKind string

const (
	ImportAbsolute   ImportKind = "absolute"
	ImportRelative   ImportKind = "relative"
	ImportFrom       ImportKind = "from"
	ImportRequire    ImportKind = "require"
	ImportDefault    ImportKind = "default"
	ImportNamed      ImportKind = "named"
	ImportSideEffect ImportKind = "side_effect"
)

type ImportRecord struct {
	Module       string
	Alias        string
	Kind         ImportKind
	ResolvedFile string // empty when resolution fails
}

type CallKind string

const (
	CallFunction CallKind = "function"
	CallMethod   CallKind = "method"
)

type CallRecord struct {
	Name   string
	Kind   CallKind
	Object string // receiver/module for method calls, empty for bare functions
}

type ClassRecord struct {
	Name    string
	Parents []string
}

// FileRecord is one file's extracted dependency facts.
type FileRecord struct {
	Path    string
	Imports []ImportRecord
	Calls   []CallRecord
	Classes []ClassRecord
}

// Scanner extracts a FileRecord from one file's bytes. Implementations
// must never panic on malformed input; a parse failure is reported as
// an error so the caller can log-and-skip (§7 resource-error policy
// for scanners).
type Scanner interface {
	// Extensions lists the file extensions (with leading dot) this
	// scanner claims, e.g. []string{".py"}.
	Extensions() []string
	Scan(path string, content []byte) (FileRecord, error)
}
