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
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

const storeTestPolicyYAML = `
id: pol-store-1
name: Test policy
description: exercises store lifecycle
type: operational
enforcement_mode: warning
rules:
  - id: rule-a
    name: rule a
    description: checks a field
    severity: low
    condition:
      field: a
      operator: exists
`

var _ = Describe("Store", func() {
	var s *Store

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		var err error
		s, err = NewStore(filepath.Join(dir, "policies"), filepath.Join(dir, "archive"), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates, gets, and rejects a duplicate create", func() {
		p, err := s.Create([]byte(storeTestPolicyYAML))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.ID).To(Equal("pol-store-1"))

		got, ok, err := s.Get("pol-store-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(got.Name).To(Equal("Test policy"))

		_, err = s.Create([]byte(storeTestPolicyYAML))
		Expect(err).To(HaveOccurred())
	})

	It("rejects a malformed document on create and on update", func() {
		duplicateRuleIDYAML := `
id: pol-store-bad
name: Bad policy
description: has two rules sharing an id
type: operational
enforcement_mode: warning
rules:
  - id: rule-a
    name: rule a
    description: checks a field
    severity: low
    condition:
      field: a
      operator: exists
  - id: rule-a
    name: rule a again
    description: checks another field
    severity: low
    condition:
      field: b
      operator: exists
`
		_, err := s.Create([]byte(duplicateRuleIDYAML))
		Expect(err).To(HaveOccurred())
		_, ok, err := s.Get("pol-store-bad")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		_, err = s.Create([]byte(storeTestPolicyYAML))
		Expect(err).NotTo(HaveOccurred())

		invalidOperatorYAML := `
id: pol-store-1
name: Test policy
description: exercises store lifecycle
type: operational
enforcement_mode: warning
rules:
  - id: rule-a
    name: rule a
    description: checks a field
    severity: low
    condition:
      field: a
      operator: not-a-real-operator
`
		_, err = s.Update("pol-store-1", []byte(invalidOperatorYAML))
		Expect(err).To(HaveOccurred())
	})

	It("archives the old version and bumps the patch version on update", func() {
		_, err := s.Create([]byte(storeTestPolicyYAML))
		Expect(err).NotTo(HaveOccurred())

		updatedYAML := `
id: pol-store-1
name: Test policy renamed
description: exercises store lifecycle
type: operational
enforcement_mode: warning
rules:
  - id: rule-a
    name: rule a
    description: checks a field
    severity: low
    condition:
      field: a
      operator: exists
`
		updated, err := s.Update("pol-store-1", []byte(updatedYAML))
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Version).To(Equal("1.0.1"))
		Expect(updated.Name).To(Equal("Test policy renamed"))

		versions, err := s.Versions("pol-store-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(versions).To(HaveLen(2))
		Expect(versions[0].Version).To(Equal("1.0.1"))
		Expect(versions[0].IsCurrent).To(BeTrue())
		Expect(versions[1].Version).To(Equal("1.0.0"))
	})

	It("restores an archived version to a new patch version", func() {
		_, err := s.Create([]byte(storeTestPolicyYAML))
		Expect(err).NotTo(HaveOccurred())

		updatedYAML := `
id: pol-store-1
name: changed
description: exercises store lifecycle
type: operational
enforcement_mode: warning
rules:
  - id: rule-a
    name: rule a
    description: checks a field
    severity: low
    condition:
      field: a
      operator: exists
`
		_, err = s.Update("pol-store-1", []byte(updatedYAML))
		Expect(err).NotTo(HaveOccurred())

		restored, err := s.RestoreVersion("pol-store-1", "1.0.0")
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.Name).To(Equal("Test policy"))
		Expect(restored.Version).To(Equal("1.0.2"))
		Expect(restored.Status).To(Equal(StatusActive))
	})

	It("archives before deleting and rejects deleting an unknown policy", func() {
		_, err := s.Create([]byte(storeTestPolicyYAML))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Delete("pol-store-1")).To(Succeed())
		_, ok, err := s.Get("pol-store-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		Expect(s.Delete("does-not-exist")).To(HaveOccurred())
	})

	It("runs the change-request lifecycle through to implementation", func() {
		_, err := s.Create([]byte(storeTestPolicyYAML))
		Expect(err).NotTo(HaveOccurred())

		cr, err := s.CreateChangeRequest("pol-store-1", "alice", "tighten rule", map[string]any{
			"name": "renamed via change request",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(cr.Status).To(Equal(ChangeRequestPending))

		_, err = s.RejectChangeRequest(cr.ID, "bob", "not yet")
		Expect(err).NotTo(HaveOccurred())

		cr2, err := s.CreateChangeRequest("pol-store-1", "alice", "tighten rule", map[string]any{
			"name": "renamed via change request",
		})
		Expect(err).NotTo(HaveOccurred())

		approved, err := s.ApproveChangeRequest(cr2.ID, "bob")
		Expect(err).NotTo(HaveOccurred())
		Expect(approved.Status).To(Equal(ChangeRequestApproved))

		_, err = s.ApproveChangeRequest(cr2.ID, "bob")
		Expect(err).To(HaveOccurred()) // already decided

		implemented, newPolicy, err := s.ImplementChangeRequest(cr2.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(implemented.Status).To(Equal(ChangeRequestImplemented))
		Expect(newPolicy.Name).To(Equal("renamed via change request"))
		Expect(newPolicy.Version).To(Equal("1.0.1"))
	})
})
