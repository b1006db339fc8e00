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

// Package packagemgr implements PackageScanner: per-ecosystem package
// manager detection and direct/transitive dependency extraction (spec
// §4.3), grounded on
// original_source/AI-CICD-Platform/services/ai-pipeline-generator/services/package_analyzer.py.
package packagemgr

import "github.com/flowforge/pipeline-core/pkg/graph"

// Manager identifies a supported ecosystem package manager.
type Manager string

const (
	ManagerPip      Manager = "pip"
	ManagerNpm      Manager = "npm"
	ManagerYarn     Manager = "yarn"
	ManagerMaven    Manager = "maven"
	ManagerGradle   Manager = "gradle"
	ManagerCargo    Manager = "cargo"
	ManagerGo       Manager = "go"
	ManagerBundler  Manager = "bundler"
	ManagerComposer Manager = "composer"
	ManagerNuget    Manager = "nuget"
)

// ProjectRoot is the virtual node every detected manager's direct
// dependencies are linked from (spec §4.3).
const ProjectRoot = "package:project"

// Dependency is one parsed (name, version) pair attributed to the
// manifest file it was declared in.
type Dependency struct {
	Name    string
	Version string
	Source  string // path to the manifest file
	Dev     bool
	Scope   string // maven scope, e.g. "compile", "test"
}

// ScanResult is PackageScanner's pre-graph output for one manager: a
// node/edge set ready to be merged into a GraphCore by GraphAssembler.
type ScanResult struct {
	Manager                Manager
	Nodes                  map[string]graph.NodeMeta
	Edges                  []graph.Edge
	DirectDependencies     map[string]Dependency
	TransitiveDependencies map[string]Dependency
	DevDependencies        map[string]Dependency
	UsedNativeTool         bool // true if the ecosystem's tree tool produced the transitive set
}

func newScanResult(m Manager) *ScanResult {
	return &ScanResult{
		Manager:                m,
		Nodes:                  map[string]graph.NodeMeta{},
		DirectDependencies:     map[string]Dependency{},
		TransitiveDependencies: map[string]Dependency{},
		DevDependencies:        map[string]Dependency{},
	}
}

func (r *ScanResult) addNode(key string, meta graph.NodeMeta) {
	if _, exists := r.Nodes[key]; !exists {
		r.Nodes[key] = meta
	}
}

func (r *ScanResult) addEdge(source, target string, direct bool, attrs map[string]any) {
	r.Edges = append(r.Edges, graph.Edge{
		Source: source,
		Target: target,
		Meta:   graph.EdgeMeta{Kind: graph.EdgePackage, IsDirect: direct, Attributes: attrs},
	})
}
