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

// Package graph implements GraphCore: a directed, labelled graph of
// dependency-analysis nodes and edges, with the traversal primitives
// (cycle detection, topological sort, critical path) the build planner
// and graph assembler build on top of. Grounded on
// original_source/AI-CICD-Platform/services/ai-pipeline-generator/models/dependency_graph.py.
package graph

// NodeKind enumerates the node identities a scanner or assembler can
// produce (spec §3).
type NodeKind string

const (
	NodeFile      NodeKind = "file"
	NodePackage   NodeKind = "package"
	NodeClass     NodeKind = "class"
	NodeFunction  NodeKind = "function"
	NodeComponent NodeKind = "component"
	NodeCustom    NodeKind = "custom"
)

// EdgeKind enumerates the dependency relationships between two nodes.
type EdgeKind string

const (
	EdgeImport       EdgeKind = "import"
	EdgeFunctionCall EdgeKind = "function_call"
	EdgeInheritance  EdgeKind = "inheritance"
	EdgePackage      EdgeKind = "package"
	EdgeCustom       EdgeKind = "custom"
)

// NodeMeta is the attribute bundle attached to a node. Attributes is a
// free-form map for scanner-specific extras (e.g. a resolved file path
// for an unresolved-import record).
type NodeMeta struct {
	Kind       NodeKind       `json:"type"`
	Language   string         `json:"language,omitempty"`
	Path       string         `json:"path,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// EdgeMeta is the attribute bundle attached to an edge.
type EdgeMeta struct {
	Kind       EdgeKind       `json:"type"`
	IsDirect   bool           `json:"is_direct"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Edge is a materialized (source, target, metadata) triple, returned
// from AllEdges/GetEdge since the graph itself stores edges keyed by
// endpoint for O(1) lookup.
type Edge struct {
	Source string
	Target string
	Meta   EdgeMeta
}
