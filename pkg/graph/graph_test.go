package graph

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGraph(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GraphCore Suite")
}

var _ = Describe("GraphCore", func() {
	It("round-trips through JSON", func() {
		g := New()
		g.AddNode("a", NodeMeta{Kind: NodeFile, Path: "a.go"})
		g.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport, IsDirect: true, Attributes: map[string]any{"version": "1.2.3"}})

		data, err := g.ToJSON()
		Expect(err).NotTo(HaveOccurred())

		back, err := FromJSON(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(back.Equal(g)).To(BeTrue())
	})

	It("keeps dependents and dependencies as inverses", func() {
		g := New()
		g.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})
		Expect(g.Dependencies("a")).To(ConsistOf("b"))
		Expect(g.Dependents("b")).To(ConsistOf("a"))
	})

	It("auto-creates endpoints on AddEdge", func() {
		g := New()
		g.AddEdge("x", "y", EdgeMeta{Kind: EdgeCustom})
		_, ok := g.GetNode("x")
		Expect(ok).To(BeTrue())
		_, ok = g.GetNode("y")
		Expect(ok).To(BeTrue())
	})

	It("replaces an edge re-added for the same (source,target)", func() {
		g := New()
		g.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport, IsDirect: true})
		g.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport, IsDirect: false})
		e, ok := g.GetEdge("a", "b")
		Expect(ok).To(BeTrue())
		Expect(e.IsDirect).To(BeFalse())
		Expect(g.Dependencies("a")).To(HaveLen(1))
	})

	It("cascades node removal to incident edges on both sides", func() {
		g := New()
		g.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})
		g.AddEdge("c", "b", EdgeMeta{Kind: EdgeImport})
		g.RemoveNode("b")

		_, ok := g.GetNode("b")
		Expect(ok).To(BeFalse())
		Expect(g.Dependencies("a")).To(BeEmpty())
		Expect(g.Dependents("b")).To(BeEmpty())
	})

	It("returns the absent sentinel for missing queries without erroring", func() {
		g := New()
		_, ok := g.GetNode("missing")
		Expect(ok).To(BeFalse())
		_, ok = g.GetEdge("missing", "also-missing")
		Expect(ok).To(BeFalse())
	})

	It("is idempotent under remove-then-re-add with the same metadata", func() {
		g1 := New()
		g1.AddNode("a", NodeMeta{Kind: NodeFile, Path: "a.go"})
		g1.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})

		g2 := New()
		g2.AddNode("a", NodeMeta{Kind: NodeFile, Path: "a.go"})
		g2.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})
		g2.RemoveNode("a")
		g2.AddNode("a", NodeMeta{Kind: NodeFile, Path: "a.go"})
		g2.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})

		Expect(g2.Equal(g1)).To(BeTrue())
	})

	Describe("traversal", func() {
		It("scenario 1: chain a->b->c sorts, has no cycles, and its critical path is the whole chain", func() {
			g := New()
			g.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})
			g.AddEdge("b", "c", EdgeMeta{Kind: EdgeImport})

			order, cyclic := g.TopologicalSort()
			Expect(cyclic).To(BeFalse())
			Expect(order).To(Equal([]string{"a", "b", "c"}))

			Expect(g.FindCycles()).To(BeEmpty())
			Expect(g.CriticalPath()).To(Equal([]string{"a", "b", "c"}))
		})

		It("scenario 2: a 3-cycle is reported once and topo sort still emits all nodes", func() {
			g := New()
			g.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})
			g.AddEdge("b", "c", EdgeMeta{Kind: EdgeImport})
			g.AddEdge("c", "a", EdgeMeta{Kind: EdgeImport})

			cycles := g.FindCycles()
			Expect(cycles).To(HaveLen(1))
			Expect(cycles[0]).To(ConsistOf("a", "b", "c"))

			order, cyclic := g.TopologicalSort()
			Expect(cyclic).To(BeTrue())
			Expect(order).To(ConsistOf("a", "b", "c"))
		})

		It("respects edge-direction ordering for every non-cyclic edge", func() {
			g := New()
			g.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})
			g.AddEdge("a", "c", EdgeMeta{Kind: EdgeImport})
			g.AddEdge("b", "d", EdgeMeta{Kind: EdgeImport})
			g.AddEdge("c", "d", EdgeMeta{Kind: EdgeImport})

			order, cyclic := g.TopologicalSort()
			Expect(cyclic).To(BeFalse())
			pos := map[string]int{}
			for i, n := range order {
				pos[n] = i
			}
			for _, e := range g.AllEdges() {
				Expect(pos[e.Source]).To(BeNumerically("<", pos[e.Target]))
			}
		})

		It("finds connected components over the undirected graph", func() {
			g := New()
			g.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})
			g.AddNode("isolated", NodeMeta{Kind: NodeFile})

			comps := g.ConnectedComponents()
			Expect(comps).To(HaveLen(2))
		})
	})

	Describe("merge", func() {
		It("combines two graphs' nodes and edges", func() {
			g1 := New()
			g1.AddEdge("a", "b", EdgeMeta{Kind: EdgeImport})

			g2 := New()
			g2.AddEdge("b", "c", EdgeMeta{Kind: EdgeImport})

			g1.Merge(g2)
			Expect(g1.Dependencies("a")).To(ConsistOf("b"))
			Expect(g1.Dependencies("b")).To(ConsistOf("c"))
			Expect(g1.NodeCount()).To(Equal(3))
		})
	})
})
