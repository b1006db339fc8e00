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

package graph

// FindCycles returns the simple cycles discovered by a DFS with an
// explicit stack (§9: pathological inputs over 10^4 nodes deep must
// not blow the call stack) and a recursion-stack set. As soon as one
// cycle is found along a DFS tree, that tree's walk stops — mirroring
// original_source's dependency_graph.py, which returns immediately on
// the first cycle per root and leaves any not-yet-visited nodes to be
// picked up (and possibly yield further cycles) by a later root.
func (g *Graph) FindCycles() [][]string {
	type frame struct {
		node string
		idx  int
	}

	visited := make(map[string]bool)
	var cycles [][]string

	for _, start := range g.NodeOrder() {
		if visited[start] {
			continue
		}

		path := []string{start}
		onPath := map[string]int{start: 0}
		visited[start] = true
		stack := []frame{{node: start, idx: 0}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.Dependencies(top.node)

			if top.idx >= len(deps) {
				node := top.node
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
				delete(onPath, node)
				continue
			}

			dep := deps[top.idx]
			top.idx++

			if pos, inPath := onPath[dep]; inPath {
				cycle := append([]string{}, path[pos:]...)
				cycles = append(cycles, cycle)
				// matches the reference: stop this tree's walk entirely
				// once one cycle is found.
				stack = nil
				break
			}

			if !visited[dep] {
				visited[dep] = true
				path = append(path, dep)
				onPath[dep] = len(path) - 1
				stack = append(stack, frame{node: dep, idx: 0})
			}
		}
	}

	return cycles
}

// TopologicalSort performs Kahn's algorithm: in-degree is the number of
// incoming edges to a node; zero-in-degree nodes enter the queue first,
// processing a node decrements the in-degree of its out-neighbors. If
// the graph is cyclic, the unemitted remainder is appended in insertion
// order and cyclic is true (spec §4.1, property in §8: for every edge
// (u,v) not in a cycle, index(u) < index(v)).
func (g *Graph) TopologicalSort() (order []string, cyclic bool) {
	nodes := g.NodeOrder()
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n] = len(g.Dependents(n))
	}

	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	emitted := make(map[string]bool, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		emitted[n] = true
		for _, dep := range g.Dependencies(n) {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	cyclic = len(order) != len(nodes)
	if cyclic {
		for _, n := range nodes {
			if !emitted[n] {
				order = append(order, n)
			}
		}
	}
	return order, cyclic
}

// CriticalPath returns the longest simple path in the graph, computed
// by relaxing edge weights of 1 along topological order; ties for the
// path's terminal node are broken by node insertion order.
func (g *Graph) CriticalPath() []string {
	nodes := g.NodeOrder()
	if len(nodes) == 0 {
		return nil
	}

	order, _ := g.TopologicalSort()
	longest := make(map[string]int, len(nodes))
	pred := make(map[string]string, len(nodes))

	for _, u := range order {
		for _, v := range g.Dependencies(u) {
			if longest[v] < longest[u]+1 {
				longest[v] = longest[u] + 1
				pred[v] = u
			}
		}
	}

	end := nodes[0]
	best := longest[end]
	for _, n := range nodes[1:] {
		if longest[n] > best {
			best = longest[n]
			end = n
		}
	}

	var path []string
	seen := map[string]bool{}
	cur := end
	for {
		path = append(path, cur)
		seen[cur] = true
		p, ok := pred[cur]
		if !ok || seen[p] {
			break
		}
		cur = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ConnectedComponents returns the connected components of the
// underlying undirected graph (ignoring edge direction), in node
// insertion order.
func (g *Graph) ConnectedComponents() [][]string {
	visited := make(map[string]bool)
	var components [][]string

	for _, start := range g.NodeOrder() {
		if visited[start] {
			continue
		}
		var component []string
		stack := []string{start}
		visited[start] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, n)
			neighbors := append(append([]string{}, g.Dependencies(n)...), g.Dependents(n)...)
			for _, nb := range neighbors {
				if !visited[nb] {
					visited[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		components = append(components, component)
	}
	return components
}
