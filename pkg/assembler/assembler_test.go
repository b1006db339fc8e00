package assembler

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flowforge/pipeline-core/pkg/graph"
	"github.com/flowforge/pipeline-core/pkg/scanner/language"
	"github.com/flowforge/pipeline-core/pkg/scanner/packagemgr"
)

func TestAssembler(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GraphAssembler Suite")
}

var _ = Describe("Assemble", func() {
	It("materializes file nodes for every scanned file", func() {
		files := []FileInput{
			{RelPath: "a.py", Record: language.FileRecord{Path: "a.py"}},
			{RelPath: "b.py", Record: language.FileRecord{Path: "b.py"}},
		}
		g := New().Assemble(files, nil)
		_, ok := g.GetNode("file:a.py")
		Expect(ok).To(BeTrue())
		_, ok = g.GetNode("file:b.py")
		Expect(ok).To(BeTrue())
	})

	It("materializes a function node and both call/defined_in edges", func() {
		files := []FileInput{
			{RelPath: "caller.py", Record: language.FileRecord{
				Path:  "caller.py",
				Calls: []language.CallRecord{{Name: "helper", Kind: language.CallFunction}},
			}},
			{RelPath: "callee.py", Record: language.FileRecord{
				Path:  "callee.py",
				Calls: []language.CallRecord{{Name: "helper", Kind: language.CallFunction}},
			}},
		}
		g := New().Assemble(files, nil)

		fnKey := "function:helper:caller.py" // first-observed call site stands in as definer
		_, ok := g.GetNode(fnKey)
		Expect(ok).To(BeTrue())

		deps := g.Dependencies("file:caller.py")
		Expect(deps).To(ContainElement(fnKey))

		fnDeps := g.Dependencies(fnKey)
		Expect(fnDeps).To(ContainElement("file:caller.py"))
	})

	It("materializes class nodes with defined_in and inheritance edges", func() {
		files := []FileInput{
			{RelPath: "base.py", Record: language.FileRecord{
				Path:    "base.py",
				Classes: []language.ClassRecord{{Name: "Base"}},
			}},
			{RelPath: "child.py", Record: language.FileRecord{
				Path:    "child.py",
				Classes: []language.ClassRecord{{Name: "Child", Parents: []string{"Base"}}},
			}},
		}
		g := New().Assemble(files, nil)

		childKey := "class:Child:child.py"
		baseKey := "class:Base:base.py"
		deps := g.Dependencies(childKey)
		Expect(deps).To(ContainElement(baseKey))
		Expect(deps).To(ContainElement("file:child.py"))
	})

	It("merges package-scanner nodes and edges verbatim", func() {
		pr := &packagemgr.ScanResult{
			Manager: packagemgr.ManagerPip,
			Nodes: map[string]graph.NodeMeta{
				packagemgr.ProjectRoot: {Kind: graph.NodePackage},
				"package:flask":        {Kind: graph.NodePackage},
			},
			Edges: []graph.Edge{
				{Source: packagemgr.ProjectRoot, Target: "package:flask", Meta: graph.EdgeMeta{Kind: graph.EdgePackage, IsDirect: true}},
			},
		}
		g := New().Assemble(nil, []*packagemgr.ScanResult{pr})
		Expect(g.Dependencies(packagemgr.ProjectRoot)).To(ContainElement("package:flask"))
	})
})

var _ = Describe("Compute (metrics)", func() {
	It("counts nodes and edges by kind and computes the cyclomatic number", func() {
		g := graph.New()
		g.AddEdge("a", "b", graph.EdgeMeta{Kind: graph.EdgeImport})
		g.AddEdge("b", "c", graph.EdgeMeta{Kind: graph.EdgeImport})

		m := Compute(g)
		Expect(m.NodeCountByKind[graph.NodeCustom]).To(Equal(3))
		Expect(m.EdgeCountByKind[graph.EdgeImport]).To(Equal(2))
		Expect(m.CyclomaticNumber).To(Equal(2 - 3 + 2))
	})

	It("ranks the top connected nodes by total degree, tie-broken by key", func() {
		g := graph.New()
		g.AddEdge("hub", "a", graph.EdgeMeta{Kind: graph.EdgeImport})
		g.AddEdge("hub", "b", graph.EdgeMeta{Kind: graph.EdgeImport})
		g.AddEdge("hub", "c", graph.EdgeMeta{Kind: graph.EdgeImport})

		m := Compute(g)
		Expect(m.TopConnected[0]).To(Equal("hub"))
	})

	It("reports the cycle list from FindCycles", func() {
		g := graph.New()
		g.AddEdge("a", "b", graph.EdgeMeta{Kind: graph.EdgeImport})
		g.AddEdge("b", "a", graph.EdgeMeta{Kind: graph.EdgeImport})

		m := Compute(g)
		Expect(m.Cycles).To(HaveLen(1))
	})
})
