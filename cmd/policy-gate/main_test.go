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

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPolicyGate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "policy-gate Suite")
}

const gatePolicyYAML = `
id: pol-gate-1
name: No privileged containers
description: blocks privileged containers
type: security
enforcement_mode: blocking
status: active
environments: [all]
rules:
  - id: rule-no-privileged
    name: container must not be privileged
    description: container.privileged must be false
    severity: critical
    condition:
      field: container.privileged
      operator: equals
      value: false
`

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, content, 0o644)).To(Succeed())
	return path
}

var _ = Describe("policy-gate", func() {
	var (
		policyDir string
		dataDir   string
	)

	BeforeEach(func() {
		dataDir = GinkgoT().TempDir()
		policyDir = filepath.Join(dataDir, "policies")
		Expect(os.MkdirAll(policyDir, 0o755)).To(Succeed())
		writeFile(GinkgoT(), policyDir, "pol-gate-1.yaml", []byte(gatePolicyYAML))
		os.Setenv("POLICY_DIR", policyDir)
		os.Setenv("POLICY_ARCHIVE_DIR", filepath.Join(dataDir, "archive"))
	})

	AfterEach(func() {
		os.Unsetenv("POLICY_DIR")
		os.Unsetenv("POLICY_ARCHIVE_DIR")
	})

	It("exits 0 and reports no violations when the target passes", func() {
		targetPath := writeFile(GinkgoT(), dataDir, "target.json",
			[]byte(`{"environment":"production","container":{"privileged":false}}`))

		stdout := filepath.Join(dataDir, "stdout")
		stderr := filepath.Join(dataDir, "stderr")
		outF, err := os.Create(stdout)
		Expect(err).NotTo(HaveOccurred())
		errF, err := os.Create(stderr)
		Expect(err).NotTo(HaveOccurred())

		code := run([]string{"-target", targetPath}, outF, errF)
		outF.Close()
		errF.Close()

		Expect(code).To(Equal(exitPassed))

		var result GateResult
		raw, err := os.ReadFile(stdout)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(raw, &result)).To(Succeed())
		Expect(result.Blocked).To(BeFalse())
		Expect(result.Violations).To(BeEmpty())
	})

	It("exits 1 and lists the violation when a blocking policy fails", func() {
		targetPath := writeFile(GinkgoT(), dataDir, "target.json",
			[]byte(`{"environment":"production","container":{"privileged":true}}`))

		stdout := filepath.Join(dataDir, "stdout")
		stderr := filepath.Join(dataDir, "stderr")
		outF, err := os.Create(stdout)
		Expect(err).NotTo(HaveOccurred())
		errF, err := os.Create(stderr)
		Expect(err).NotTo(HaveOccurred())

		code := run([]string{"-target", targetPath}, outF, errF)
		outF.Close()
		errF.Close()

		Expect(code).To(Equal(exitBlocked))

		var result GateResult
		raw, err := os.ReadFile(stdout)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(raw, &result)).To(Succeed())
		Expect(result.Blocked).To(BeTrue())
		Expect(result.Violations).To(HaveLen(1))
		Expect(result.Violations[0].RuleID).To(Equal("rule-no-privileged"))
	})

	It("exits 2 when the target file is missing", func() {
		stdout := filepath.Join(dataDir, "stdout")
		stderr := filepath.Join(dataDir, "stderr")
		outF, err := os.Create(stdout)
		Expect(err).NotTo(HaveOccurred())
		errF, err := os.Create(stderr)
		Expect(err).NotTo(HaveOccurred())

		code := run([]string{"-target", filepath.Join(dataDir, "missing.json")}, outF, errF)
		outF.Close()
		errF.Close()

		Expect(code).To(Equal(exitInternal))
	})
})
