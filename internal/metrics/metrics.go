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

// Package metrics exposes the Prometheus collectors shared across the
// dependency graph, policy, and remediation engines. Scraping transport
// is out of scope (spec §1 non-goal: HTTP transport framing); this
// package only owns the registry and the collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_core_scans_total",
		Help: "Source/package scans performed, by scanner kind and outcome.",
	}, []string{"scanner", "outcome"})

	PolicyEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_core_policy_evaluations_total",
		Help: "Policy evaluations performed, by outcome (passed/failed/skipped).",
	}, []string{"outcome"})

	WorkflowStepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_core_workflow_steps_total",
		Help: "Workflow steps executed, by kind and resulting status.",
	}, []string{"kind", "status"})

	RollbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_core_rollbacks_total",
		Help: "Rollback operations performed, by resulting status.",
	}, []string{"status"})

	ActiveWorkflows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_core_active_workflows",
		Help: "Number of workflows currently not in a terminal state.",
	})
)

// Registry returns a fresh registry with every collector above
// registered, for tests and for embedding in a process-wide registry.
func Registry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(ScansTotal, PolicyEvaluationsTotal, WorkflowStepsTotal, RollbacksTotal, ActiveWorkflows)
	return r
}
