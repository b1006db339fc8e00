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
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validator", func() {
	var v *Validator
	BeforeEach(func() { v = NewValidator() })

	It("accepts a well-formed policy", func() {
		p := samplePolicy()
		Expect(v.Validate(p)).To(BeEmpty())
	})

	It("flags a missing enforcement mode", func() {
		p := samplePolicy()
		p.EnforcementMode = ""
		Expect(v.Validate(p)).NotTo(BeEmpty())
	})

	It("flags duplicate rule IDs", func() {
		p := samplePolicy()
		p.Rules = append(p.Rules, p.Rules[0])
		errs := v.Validate(p)
		found := false
		for _, e := range errs {
			if strings.Contains(e, "duplicate rule id") {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("flags a policy with zero rules", func() {
		p := samplePolicy()
		p.Rules = nil
		Expect(v.Validate(p)).NotTo(BeEmpty())
	})

	It("ValidateYAML reports the parse error for malformed YAML", func() {
		ok, errs := v.ValidateYAML([]byte("not: [valid"))
		Expect(ok).To(BeFalse())
		Expect(errs).NotTo(BeEmpty())
	})

	It("flags a regex_match leaf with an unparseable pattern", func() {
		p := samplePolicy()
		p.Rules[0].Condition = ConditionGroup{Leaf: &Condition{
			Field: "image.tag", Operator: OpRegexMatch, Value: "([a-z",
		}}
		errs := v.Validate(p)
		found := false
		for _, e := range errs {
			if strings.Contains(e, "invalid regex_match pattern") {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("accepts a regex_match leaf with a valid pattern", func() {
		p := samplePolicy()
		p.Rules[0].Condition = ConditionGroup{Leaf: &Condition{
			Field: "image.tag", Operator: OpRegexMatch, Value: "^v[0-9]+\\.[0-9]+$",
		}}
		Expect(v.Validate(p)).To(BeEmpty())
	})
})
