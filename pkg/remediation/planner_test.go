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

package remediation

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRemediation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RemediationPlanner Suite")
}

func newTestPlanner() *Planner {
	p, err := NewPlanner(GinkgoT().TempDir(), NewTemplater(), nil)
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("Planner.CreatePlan", func() {
	It("creates a plan with one action per distinct vulnerability", func() {
		p := newTestPlanner()
		req := Request{
			RepositoryURL: "https://github.com/test/repo",
			CommitSHA:     "abcdef123456",
			Vulnerabilities: []Vulnerability{
				{ID: "CVE-2023-0001", Type: "CVE", AffectedComponent: "example-dependency@1.0.0", FixVersion: "1.1.0"},
				{ID: "CVE-2023-0002", Type: "CVE", AffectedComponent: "example-dependency@1.0.0", FixVersion: "1.1.0"},
				// duplicate of the first vulnerability id, must be de-duplicated
				{ID: "CVE-2023-0001", Type: "CVE", AffectedComponent: "example-dependency@1.0.0", FixVersion: "1.1.0"},
			},
		}

		plan, err := p.CreatePlan(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan.ID).NotTo(BeEmpty())
		Expect(plan.Status).To(Equal(StatusPending))
		Expect(plan.Target).To(Equal("https://github.com/test/repo@abcdef123456"))
		Expect(plan.Actions).To(HaveLen(2))

		saved, ok, err := p.GetPlan(plan.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(saved.ID).To(Equal(plan.ID))
		Expect(saved.Actions).To(HaveLen(2))
	})

	It("instantiates steps with placeholders substituted (spec scenario 5)", func() {
		p := newTestPlanner()
		req := Request{
			RepositoryURL: "https://github.com/test/repo",
			CommitSHA:     "abcdef123456",
			Vulnerabilities: []Vulnerability{
				{ID: "CVE-2023-0001", Type: "CVE", AffectedComponent: "example-dependency@1.0.0", FixVersion: "1.1.0"},
			},
		}

		plan, err := p.CreatePlan(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan.Actions).To(HaveLen(1))

		action := plan.Actions[0]
		Expect(action.Strategy).To(Equal(StrategyAutomated))
		Expect(action.Source).To(Equal(SourceTemplate))
		Expect(action.Steps).To(HaveLen(2))
		Expect(action.Steps[1].Parameters["file_path"]).To(Equal("package.json"))
		Expect(action.Steps[1].Parameters["dependency_name"]).To(Equal("example-dependency"))
		Expect(action.Steps[1].Parameters["fixed_version"]).To(Equal("1.1.0"))
	})

	It("skips an action when a required template variable is missing", func() {
		p, err := NewPlanner(GinkgoT().TempDir(), soloTemplater(Template{
			ID:                 "TEMPLATE-NEEDS-EXTRA",
			VulnerabilityTypes: []string{"CVE"},
			Steps:              []StepPrototype{{Name: "step", Action: "NOOP"}},
			Variables: map[string]VariableSpec{
				"unknown_extra_var": {Required: true},
			},
			Strategy: StrategyAutomated,
		}), nil)
		Expect(err).NotTo(HaveOccurred())

		plan, err := p.CreatePlan(Request{
			RepositoryURL:   "r",
			CommitSHA:       "s",
			Vulnerabilities: []Vulnerability{{ID: "CVE-X", Type: "CVE"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(plan.Actions).To(BeEmpty())
	})
})

func soloTemplater(tpl Template) *Templater {
	t := &Templater{templates: map[string]Template{}}
	t.Register(tpl)
	return t
}

var _ = Describe("Planner.ExecuteAction / ExecutePlan", func() {
	It("executes a single action and records a successful result", func() {
		p := newTestPlanner()
		plan, err := p.CreatePlan(Request{
			RepositoryURL:   "r",
			CommitSHA:       "s",
			Vulnerabilities: []Vulnerability{{ID: "CVE-1", Type: "CVE", AffectedComponent: "dep@1.0.0", FixVersion: "1.1.0"}},
		})
		Expect(err).NotTo(HaveOccurred())

		result, err := p.ExecuteAction(plan.Actions[0].ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Success).To(BeTrue())
		Expect(result.Status).To(Equal(StatusCompleted))

		updated, ok, err := p.GetAction(plan.Actions[0].ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(updated.Status).To(Equal(StatusCompleted))
	})

	It("executes every action in a plan and marks the plan completed", func() {
		p := newTestPlanner()
		plan, err := p.CreatePlan(Request{
			RepositoryURL: "r",
			CommitSHA:     "s",
			Vulnerabilities: []Vulnerability{
				{ID: "CVE-1", Type: "CVE", AffectedComponent: "dep@1.0.0", FixVersion: "1.1.0"},
				{ID: "CVE-2", Type: "CVE", AffectedComponent: "dep2@1.0.0", FixVersion: "1.1.0"},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		results, err := p.ExecutePlan(plan.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		for _, r := range results {
			Expect(r.Success).To(BeTrue())
		}

		updated, ok, err := p.GetPlan(plan.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(updated.Status).To(Equal(StatusCompleted))
	})
})
