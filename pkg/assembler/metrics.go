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

package assembler

import (
	"sort"

	"github.com/flowforge/pipeline-core/pkg/graph"
)

// Metrics is the one-pass bundle computed over an assembled graph
// (spec §4.4). Formulas are pinned for reproducibility: cyclomatic
// number is E-N+2, average degree is total-degree/node-count, and the
// top-k list is sorted by total degree descending with a key
// tie-break for determinism.
type Metrics struct {
	NodeCountByKind    map[graph.NodeKind]int
	EdgeCountByKind    map[graph.EdgeKind]int
	InDegree           map[string]int
	OutDegree          map[string]int
	MaxInDegree        int
	MaxOutDegree       int
	AverageDegree      float64
	TopConnected       []string
	CyclomaticNumber   int
	MaxDependencyDepth int
	Cycles             [][]string
}

const topK = 10

// Compute derives Metrics from g in a single pass over its nodes and
// edges, plus the traversal primitives GraphCore already exposes.
func Compute(g *graph.Graph) Metrics {
	nodes := g.AllNodes()
	edges := g.AllEdges()

	m := Metrics{
		NodeCountByKind: map[graph.NodeKind]int{},
		EdgeCountByKind: map[graph.EdgeKind]int{},
		InDegree:        map[string]int{},
		OutDegree:       map[string]int{},
	}

	for key, meta := range nodes {
		m.NodeCountByKind[meta.Kind]++
		m.InDegree[key] = 0
		m.OutDegree[key] = 0
	}
	for _, e := range edges {
		m.EdgeCountByKind[e.Meta.Kind]++
		m.OutDegree[e.Source]++
		m.InDegree[e.Target]++
	}
	for _, d := range m.InDegree {
		if d > m.MaxInDegree {
			m.MaxInDegree = d
		}
	}
	for _, d := range m.OutDegree {
		if d > m.MaxOutDegree {
			m.MaxOutDegree = d
		}
	}

	nodeCount := len(nodes)
	edgeCount := len(edges)
	if nodeCount > 0 {
		m.AverageDegree = float64(2*edgeCount) / float64(nodeCount)
	}
	m.CyclomaticNumber = edgeCount - nodeCount + 2

	type degreeEntry struct {
		key    string
		degree int
	}
	entries := make([]degreeEntry, 0, nodeCount)
	for key := range nodes {
		entries = append(entries, degreeEntry{key, m.InDegree[key] + m.OutDegree[key]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].degree != entries[j].degree {
			return entries[i].degree > entries[j].degree
		}
		return entries[i].key < entries[j].key
	})
	limit := topK
	if limit > len(entries) {
		limit = len(entries)
	}
	for i := 0; i < limit; i++ {
		m.TopConnected = append(m.TopConnected, entries[i].key)
	}

	m.Cycles = g.FindCycles()
	m.MaxDependencyDepth = maxDependencyDepth(g)

	return m
}

// maxDependencyDepth is the length (in nodes) of the longest path in the
// topological order, and 0 only when the graph is empty. On a cyclic
// graph the nodes on cycles come last in insertion order, and the
// critical path is taken over that order, so the result is non-zero.
func maxDependencyDepth(g *graph.Graph) int {
	path := g.CriticalPath()
	return len(path)
}
