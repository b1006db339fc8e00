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
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const samplePolicyYAML = `
id: pol-yaml-1
name: Require HTTPS
description: ensures secure protocols are used
type: security
enforcement_mode: blocking
rules:
  - id: rule-https
    name: must use https
    description: checks protocol list
    severity: high
    condition:
      operator: and
      conditions:
        - field: artifact.protocols
          operator: contains
          value: https
        - field: artifact.protocols
          operator: not_contains
          value: http
`

const leafOnlyPolicyYAML = `
id: pol-yaml-2
name: Simple leaf
description: single bare condition, no group wrapper
type: operational
enforcement_mode: warning
rules:
  - id: rule-leaf
    name: leaf rule
    description: checks one field
    severity: low
    condition:
      field: deployment.replicas
      operator: greater_than
      value: 1
`

var _ = Describe("LoadFromYAML", func() {
	It("parses a policy with a nested AND condition group", func() {
		p, err := LoadFromYAML([]byte(samplePolicyYAML))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.ID).To(Equal("pol-yaml-1"))
		Expect(p.Status).To(Equal(StatusActive)) // default applied
		Expect(p.Environments).To(ConsistOf(EnvironmentAll))
		Expect(p.Version).To(Equal("1.0.0"))

		cond := p.Rules[0].Condition
		Expect(cond.Leaf).To(BeNil())
		Expect(cond.Operator).To(Equal(LogicalAnd))
		Expect(cond.Conditions).To(HaveLen(2))
		Expect(cond.Conditions[0].Leaf.Field).To(Equal("artifact.protocols"))
	})

	It("disambiguates a bare leaf condition with no group wrapper", func() {
		p, err := LoadFromYAML([]byte(leafOnlyPolicyYAML))
		Expect(err).NotTo(HaveOccurred())
		cond := p.Rules[0].Condition
		Expect(cond.Leaf).NotTo(BeNil())
		Expect(cond.Leaf.Field).To(Equal("deployment.replicas"))
		Expect(cond.Leaf.Operator).To(Equal(OpGreaterThan))
	})

	It("round-trips through ToYAML and back", func() {
		p, err := LoadFromYAML([]byte(samplePolicyYAML))
		Expect(err).NotTo(HaveOccurred())

		out, err := ToYAML(p)
		Expect(err).NotTo(HaveOccurred())

		reparsed, err := LoadFromYAML(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(reparsed.ID).To(Equal(p.ID))
		Expect(reparsed.Rules[0].Condition.Conditions).To(HaveLen(2))
	})

	It("rejects a value supplied alongside exists/not_exists", func() {
		bad := `
id: pol-bad
name: bad
description: bad
type: security
enforcement_mode: warning
rules:
  - id: r1
    name: r1
    description: r1
    severity: low
    condition:
      field: a.b
      operator: exists
      value: true
`
		_, err := LoadFromYAML([]byte(bad))
		Expect(err).To(HaveOccurred())
	})

	It("rejects a missing value for an operator that requires one", func() {
		bad := `
id: pol-bad2
name: bad
description: bad
type: security
enforcement_mode: warning
rules:
  - id: r1
    name: r1
    description: r1
    severity: low
    condition:
      field: a.b
      operator: equals
`
		_, err := LoadFromYAML([]byte(bad))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadFromJSON", func() {
	It("round-trips a policy through ToJSON and back, preserving the condition tree", func() {
		p, err := LoadFromYAML([]byte(samplePolicyYAML))
		Expect(err).NotTo(HaveOccurred())

		out, err := ToJSON(p)
		Expect(err).NotTo(HaveOccurred())

		reparsed, err := LoadFromJSON(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(reparsed.ID).To(Equal(p.ID))
		Expect(reparsed.Rules[0].Condition.Operator).To(Equal(LogicalAnd))
		Expect(reparsed.Rules[0].Condition.Conditions).To(HaveLen(2))
		Expect(reparsed.Rules[0].Condition.Conditions[0].Leaf.Field).To(Equal("artifact.protocols"))
	})

	It("rejects malformed JSON", func() {
		_, err := LoadFromJSON([]byte("{not json"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadFromFile", func() {
	It("dispatches .json files to LoadFromJSON", func() {
		p, err := LoadFromYAML([]byte(leafOnlyPolicyYAML))
		Expect(err).NotTo(HaveOccurred())
		data, err := ToJSON(p)
		Expect(err).NotTo(HaveOccurred())

		dir := GinkgoT().TempDir()
		path := dir + "/policy.json"
		Expect(os.WriteFile(path, data, 0o644)).To(Succeed())

		loaded, err := LoadFromFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.ID).To(Equal(p.ID))
	})
})
