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

package metrics

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics Suite")
}

var _ = Describe("Registry", func() {
	It("registers every collector without a name collision", func() {
		r := Registry()
		families, err := r.Gather()
		Expect(err).NotTo(HaveOccurred())

		var names []string
		for _, f := range families {
			names = append(names, f.GetName())
		}
		Expect(names).To(ContainElements(
			"pipeline_core_scans_total",
			"pipeline_core_policy_evaluations_total",
			"pipeline_core_workflow_steps_total",
			"pipeline_core_rollbacks_total",
			"pipeline_core_active_workflows",
		))
	})

	It("reflects increments made through the shared counters", func() {
		ScansTotal.WithLabelValues("language", "success").Inc()
		Expect(testutil.ToFloat64(ScansTotal.WithLabelValues("language", "success"))).To(BeNumerically(">=", 1))
	})
})
