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

// Package assembler implements GraphAssembler: it merges LanguageScanner
// and PackageScanner output into a single GraphCore instance and
// computes the one-pass metrics bundle (spec §4.4), grounded on
// original_source/AI-CICD-Platform/services/ai-pipeline-generator/models/dependency_graph.py's
// node/edge materialization and metric formulas.
package assembler

import (
	"path/filepath"
	"strings"

	"github.com/flowforge/pipeline-core/pkg/graph"
	"github.com/flowforge/pipeline-core/pkg/scanner/language"
	"github.com/flowforge/pipeline-core/pkg/scanner/packagemgr"
)

// FileInput pairs a relative project path with its language-scanner
// extraction result.
type FileInput struct {
	RelPath string
	Record  language.FileRecord
}

// Assembler builds a GraphCore from scanner outputs.
type Assembler struct{}

func New() *Assembler { return &Assembler{} }

// Assemble merges language-scan and package-scan results into one graph
// following the materialization rules in spec §4.4.
func (a *Assembler) Assemble(files []FileInput, pkgResults []*packagemgr.ScanResult) *graph.Graph {
	g := graph.New()

	knownFiles := make(map[string]bool, len(files))
	functionDefiner := make(map[string]string) // function name -> defining file
	classDefiner := make(map[string]string)    // class name -> defining file
	for _, f := range files {
		knownFiles[f.RelPath] = true
		for _, cls := range f.Record.Classes {
			classDefiner[cls.Name] = f.RelPath
		}
	}
	// Function definitions aren't a separate record in FileRecord (only
	// callsites are), so the first file observed calling a given bare
	// function name stands in as its "definition site" — an approximation
	// the assembler rules tolerate: an unresolved name simply gets no edge.
	for _, f := range files {
		for _, call := range f.Record.Calls {
			if call.Kind != language.CallFunction {
				continue
			}
			if _, ok := functionDefiner[call.Name]; !ok {
				functionDefiner[call.Name] = f.RelPath
			}
		}
	}

	for _, f := range files {
		fileKey := "file:" + f.RelPath
		g.AddNode(fileKey, graph.NodeMeta{Kind: graph.NodeFile, Path: f.RelPath})

		for _, imp := range f.Record.Imports {
			target := imp.ResolvedFile
			if target == "" {
				target = resolveImport(f.RelPath, imp, knownFiles)
			}
			if target == "" || target == f.RelPath {
				continue
			}
			g.AddEdge(fileKey, "file:"+target, graph.EdgeMeta{
				Kind:       graph.EdgeImport,
				IsDirect:   true,
				Attributes: map[string]any{"module": imp.Module},
			})
		}

		for _, call := range f.Record.Calls {
			if call.Kind != language.CallFunction {
				continue
			}
			definingFile, ok := functionDefiner[call.Name]
			if !ok {
				continue
			}
			fnKey := "function:" + call.Name + ":" + definingFile
			g.AddNode(fnKey, graph.NodeMeta{Kind: graph.NodeFunction, Path: definingFile, Attributes: map[string]any{"name": call.Name}})
			g.AddEdge(fileKey, fnKey, graph.EdgeMeta{Kind: graph.EdgeFunctionCall, IsDirect: true})
			g.AddEdge(fnKey, "file:"+definingFile, graph.EdgeMeta{
				Kind:       graph.EdgeCustom,
				IsDirect:   true,
				Attributes: map[string]any{"relationship": "defined_in"},
			})
		}

		for _, cls := range f.Record.Classes {
			classKey := "class:" + cls.Name + ":" + f.RelPath
			g.AddNode(classKey, graph.NodeMeta{Kind: graph.NodeClass, Path: f.RelPath, Attributes: map[string]any{"name": cls.Name}})
			g.AddEdge(classKey, fileKey, graph.EdgeMeta{
				Kind:       graph.EdgeCustom,
				IsDirect:   true,
				Attributes: map[string]any{"relationship": "defined_in"},
			})
			for _, parent := range cls.Parents {
				parentFile, ok := classDefiner[parent]
				if !ok {
					continue
				}
				parentKey := "class:" + parent + ":" + parentFile
				g.AddNode(parentKey, graph.NodeMeta{Kind: graph.NodeClass, Path: parentFile, Attributes: map[string]any{"name": parent}})
				g.AddEdge(classKey, parentKey, graph.EdgeMeta{Kind: graph.EdgeInheritance, IsDirect: true})
			}
		}
	}

	for _, pr := range pkgResults {
		for key, meta := range pr.Nodes {
			g.AddNode(key, meta)
		}
		for _, e := range pr.Edges {
			g.AddEdge(e.Source, e.Target, e.Meta)
		}
	}

	return g
}

// resolveImport applies a minimal dotted-module -> relative-path
// heuristic for Python and path-like modules for JS/TS, limited to
// modules that resolve to a file already present in the scanned set;
// anything else is left unresolved per §4.2.
func resolveImport(fromFile string, imp language.ImportRecord, knownFiles map[string]bool) string {
	switch imp.Kind {
	case language.ImportAbsolute, language.ImportFrom:
		candidate := strings.ReplaceAll(imp.Module, ".", "/") + ".py"
		if knownFiles[candidate] {
			return candidate
		}
	case language.ImportRelative:
		dir := filepath.Dir(fromFile)
		candidate := filepath.ToSlash(filepath.Join(dir, strings.TrimPrefix(imp.Module, ".")+".py"))
		if knownFiles[candidate] {
			return candidate
		}
	case language.ImportDefault, language.ImportNamed, language.ImportRequire, language.ImportSideEffect:
		for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
			candidate := filepath.ToSlash(filepath.Join(filepath.Dir(fromFile), imp.Module+ext))
			if knownFiles[candidate] {
				return candidate
			}
		}
	}
	return ""
}
