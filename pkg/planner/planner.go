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

package planner

import (
	"sort"

	"github.com/flowforge/pipeline-core/pkg/graph"
)

// Planner computes BuildPlanner output over a GraphCore.
type Planner struct {
	MaxParallelJobs int
}

func New(maxParallelJobs int) *Planner {
	if maxParallelJobs <= 0 {
		maxParallelJobs = 1
	}
	return &Planner{MaxParallelJobs: maxParallelJobs}
}

// Plan computes the full BuildPlanner output. changed is the set of
// modified file-ish node keys; nil or empty means "plan over the whole
// graph" (spec §4.5).
func (p *Planner) Plan(g *graph.Graph, changed []string) Plan {
	affected := p.AffectedSet(g, changed)
	sub := subgraph(g, affected)

	order, cyclic := sub.TopologicalSort()
	levels := p.levels(sub)

	plan := Plan{
		Affected:              affected,
		BuildOrder:            order,
		Cyclic:                cyclic,
		Cycles:                sub.FindCycles(),
		CriticalPath:          sub.CriticalPath(),
		Levels:                levels,
		IndependentComponents: independentComponents(g),
		ParallelPaths:         parallelPaths(g),
	}
	plan.Batches = batchLevels(levels, p.MaxParallelJobs)
	plan.EstimatedBatchCount = len(plan.Batches)
	return plan
}

// AffectedSet is the union of changed nodes and the closure of their
// dependents: rebuild propagates along reverse edges relative to
// dependency direction (spec §4.5). With an empty changed set, every
// node in g is affected.
func (p *Planner) AffectedSet(g *graph.Graph, changed []string) []string {
	if len(changed) == 0 {
		nodes := g.AllNodes()
		out := make([]string, 0, len(nodes))
		for k := range nodes {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	}

	seen := map[string]bool{}
	var queue []string
	for _, c := range changed {
		if !seen[c] {
			seen[c] = true
			queue = append(queue, c)
		}
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, dependent := range g.Dependents(node) {
			if !seen[dependent] {
				seen[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// subgraph extracts the induced sub-graph over keys: every node in
// keys, plus every edge of g whose endpoints are both in keys.
func subgraph(g *graph.Graph, keys []string) *graph.Graph {
	nodes := g.AllNodes()
	inSet := make(map[string]bool, len(keys))
	for _, k := range keys {
		inSet[k] = true
	}

	sub := graph.New()
	for _, k := range keys {
		if meta, ok := nodes[k]; ok {
			sub.AddNode(k, meta)
		}
	}
	for _, e := range g.AllEdges() {
		if inSet[e.Source] && inSet[e.Target] {
			sub.AddEdge(e.Source, e.Target, e.Meta)
		}
	}
	return sub
}

// levels runs Kahn's algorithm wave-by-wave: all currently zero-in-degree
// nodes in the (remaining) sub-graph form one level, then are removed.
// A cyclic remainder stops emitting further levels (its nodes already
// appear in Plan.Cycles/BuildOrder's cyclic tail).
func (p *Planner) levels(g *graph.Graph) []Level {
	nodes := g.AllNodes()
	inDegree := make(map[string]int, len(nodes))
	order := g.NodeOrder()
	for _, k := range order {
		inDegree[k] = 0
	}
	for _, e := range g.AllEdges() {
		inDegree[e.Target]++
	}

	remaining := map[string]bool{}
	for _, k := range order {
		remaining[k] = true
	}

	var levels []Level
	for len(remaining) > 0 {
		var zero []string
		for _, k := range order {
			if remaining[k] && inDegree[k] == 0 {
				zero = append(zero, k)
			}
		}
		if len(zero) == 0 {
			break // cyclic remainder; stop (cycles reported separately)
		}
		levels = append(levels, Level(zero))
		for _, k := range zero {
			delete(remaining, k)
			for _, dep := range g.Dependencies(k) {
				if remaining[dep] {
					inDegree[dep]--
				}
			}
		}
	}
	return levels
}

func batchLevels(levels []Level, maxParallelJobs int) []Batch {
	var batches []Batch
	for _, level := range levels {
		for i := 0; i < len(level); i += maxParallelJobs {
			end := i + maxParallelJobs
			if end > len(level) {
				end = len(level)
			}
			batches = append(batches, Batch(level[i:end]))
		}
	}
	return batches
}

// independentComponents returns every connected component (over the
// undirected view of g) with more than one node.
func independentComponents(g *graph.Graph) [][]string {
	var out [][]string
	for _, comp := range g.ConnectedComponents() {
		if len(comp) > 1 {
			out = append(out, comp)
		}
	}
	return out
}

// parallelPaths seeds one path per outgoing edge of every node with
// out-degree > 1, walking the first dependency toward a leaf with a
// cycle guard (spec §4.5).
func parallelPaths(g *graph.Graph) [][]string {
	var paths [][]string
	for _, node := range g.NodeOrder() {
		deps := g.Dependencies(node)
		if len(deps) <= 1 {
			continue
		}
		for _, start := range deps {
			paths = append(paths, walkFirstDependency(g, start))
		}
	}
	return paths
}

func walkFirstDependency(g *graph.Graph, start string) []string {
	visited := map[string]bool{}
	path := []string{start}
	current := start
	for {
		if visited[current] {
			break
		}
		visited[current] = true
		deps := g.Dependencies(current)
		if len(deps) == 0 {
			break
		}
		current = deps[0]
		path = append(path, current)
	}
	return path
}
