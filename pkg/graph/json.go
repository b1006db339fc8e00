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

import (
	"encoding/json"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
)

type wireEdge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Meta   EdgeMeta `json:"metadata"`
}

type wireGraph struct {
	Nodes map[string]NodeMeta `json:"nodes"`
	Edges []wireEdge          `json:"edges"`
}

// ToJSON renders the stable wire format from spec §6. Edge order is
// preserved (source-node order, then per-source insertion order); nodes
// are a JSON object that encoding/json writes in sorted key order, not
// insertion order, which is why Equal (not byte-for-byte comparison) is
// the round-trip check.
func (g *Graph) ToJSON() ([]byte, error) {
	w := wireGraph{Nodes: g.AllNodes()}
	for _, e := range g.AllEdges() {
		w.Edges = append(w.Edges, wireEdge{Source: e.Source, Target: e.Target, Meta: e.Meta})
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "encode graph")
	}
	return data, nil
}

// FromJSON parses the stable wire format into a new Graph. Nodes are
// added first (in whatever order encoding/json's decoder yields map
// keys), then edges in their array order, so AllEdges() on the result
// reproduces the original edge order even though node order may not
// match the graph that produced the JSON.
func FromJSON(data []byte) (*Graph, error) {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeValidation, "decode graph")
	}

	g := New()
	for key, meta := range w.Nodes {
		g.AddNode(key, meta)
	}
	for _, e := range w.Edges {
		g.AddEdge(e.Source, e.Target, e.Meta)
	}
	return g, nil
}

// Equal reports whether g and other have the same nodes (by key and
// metadata) and the same edge set (by endpoints and metadata),
// disregarding insertion order. This is the round-trip equality used
// by the from_json(to_json(g)) == g testable property.
func (g *Graph) Equal(other *Graph) bool {
	if other == nil {
		return false
	}
	a, b := g.AllNodes(), other.AllNodes()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !nodeMetaEqual(v, ov) {
			return false
		}
	}

	ae, be := g.AllEdges(), other.AllEdges()
	if len(ae) != len(be) {
		return false
	}
	index := make(map[[2]string]EdgeMeta, len(be))
	for _, e := range be {
		index[[2]string{e.Source, e.Target}] = e.Meta
	}
	for _, e := range ae {
		om, ok := index[[2]string{e.Source, e.Target}]
		if !ok || !edgeMetaEqual(e.Meta, om) {
			return false
		}
	}
	return true
}

func nodeMetaEqual(a, b NodeMeta) bool {
	if a.Kind != b.Kind || a.Language != b.Language || a.Path != b.Path {
		return false
	}
	return mapsEqual(a.Attributes, b.Attributes)
}

func edgeMetaEqual(a, b EdgeMeta) bool {
	if a.Kind != b.Kind || a.IsDirect != b.IsDirect {
		return false
	}
	return mapsEqual(a.Attributes, b.Attributes)
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		// JSON round-tripping turns numeric Go values into float64; compare
		// via formatted string to keep this tolerant of that conversion.
		if jsonScalar(v) != jsonScalar(bv) {
			return false
		}
	}
	return true
}

func jsonScalar(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
