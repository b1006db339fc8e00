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

package policy

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("Reporter", func() {
	var reporter *Reporter
	var p Policy

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		var err error
		reporter, err = NewReporter(nil, dir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		p = samplePolicy()
		p.Type = TypeSecurity
	})

	It("marks a requirement non-compliant when a matching policy evaluation failed", func() {
		result := EvaluationResult{
			PolicyID: p.ID, PolicyName: p.Name, PolicyType: TypeSecurity, Passed: false,
			RuleResults: []RuleResult{{RuleID: "rule-1", RuleName: "x", Passed: false, Severity: SeverityCritical}},
		}
		report, err := reporter.Generate(map[string]Policy{p.ID: p}, []EvaluationResult{result}, nil, map[string]any{"service": "checkout"})
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Summary.StandardsCount).To(Equal(3)) // full catalog, no standardIDs given
		Expect(report.Summary.OverallStatus).To(Equal(ComplianceNonCompliant))
		Expect(report.Violations).NotTo(BeEmpty())

		foundNonCompliant := false
		for _, std := range report.Standards {
			for _, req := range std.Requirements {
				if req.Status == ComplianceNonCompliant {
					foundNonCompliant = true
				}
			}
		}
		Expect(foundNonCompliant).To(BeTrue())
	})

	It("marks requirements compliant when all matching evaluations passed", func() {
		result := EvaluationResult{
			PolicyID: p.ID, PolicyName: p.Name, PolicyType: TypeSecurity, Passed: true,
			RuleResults: []RuleResult{{RuleID: "rule-1", RuleName: "x", Passed: true, Severity: SeverityCritical}},
		}
		report, err := reporter.Generate(map[string]Policy{p.ID: p}, []EvaluationResult{result}, []string{"pci-dss"}, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Summary.StandardsCount).To(Equal(1))
		Expect(report.Violations).To(BeEmpty())
		Expect(report.Summary.ComplianceScore).To(Equal(100.0))
		Expect(report.Summary.OverallStatus).To(Equal(ComplianceCompliant))
	})

	It("marks a requirement not_applicable when no evaluation targets its policy types", func() {
		report, err := reporter.Generate(map[string]Policy{}, nil, []string{"nist-800-53"}, nil)
		Expect(err).NotTo(HaveOccurred())

		for _, std := range report.Standards {
			for _, req := range std.Requirements {
				Expect(req.Status).To(Equal(ComplianceNotApplicable))
			}
		}
		Expect(report.Summary.ComplianceScore).To(Equal(0.0))
	})

	It("falls back to the full catalog when no requested standard ID is recognized", func() {
		report, err := reporter.Generate(map[string]Policy{}, nil, []string{"does-not-exist"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Summary.StandardsCount).To(Equal(3))
	})
})
