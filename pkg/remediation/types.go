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

// Package remediation implements the RemediationPlanner half of the
// remediation orchestrator (spec §3 "Remediation", §4.8): matching
// reported vulnerabilities to templates, instantiating concrete
// Actions, and bundling them into a Plan. The Plan's actions are
// consumed by pkg/workflow to drive execution; this package never
// executes an action's steps itself beyond recording a result.
package remediation

import "time"

// Strategy is how an Action is meant to be carried out.
type Strategy string

const (
	StrategyAutomated Strategy = "automated"
	StrategyAssisted  Strategy = "assisted"
	StrategyManual    Strategy = "manual"
)

// Source distinguishes an Action generated from a Template from one a
// caller supplied directly.
type Source string

const (
	SourceTemplate Source = "template"
	SourceCustom   Source = "custom"
)

// Status is the lifecycle of an Action, a Plan, or a RemediationResult.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
	StatusSkipped    Status = "skipped"
)

// Vulnerability is the external input a RemediationRequest carries
// (spec §3: "Vulnerability (external)").
type Vulnerability struct {
	ID                string   `json:"id"`
	Title             string   `json:"title,omitempty"`
	Description       string   `json:"description,omitempty"`
	Severity          string   `json:"severity"`
	CVSSScore         float64  `json:"cvss_score,omitempty"`
	AffectedComponent string   `json:"affected_component"`
	FixVersion        string   `json:"fix_version"`
	References        []string `json:"references,omitempty"`
	// Type classifies the vulnerability for template matching
	// (e.g. "CVE", "DEPENDENCY", "SECRET", "LICENSE"). Empty means
	// the request did not classify it; Planner.CreatePlan matches it as
	// "CVE" in that case, mirroring a CVE-prefixed ID.
	Type string `json:"type,omitempty"`
}

// Request is the input to Planner.CreatePlan (spec §4.8).
type Request struct {
	RepositoryURL   string          `json:"repository_url"`
	CommitSHA       string          `json:"commit_sha"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	AutoApply       bool            `json:"auto_apply"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// Target renders the "repo@sha" string a Plan records (spec §3).
func (r Request) Target() string {
	return r.RepositoryURL + "@" + r.CommitSHA
}

// StepPrototype is one entry in a Template's ordered step list, with
// "${var}" placeholders still unresolved.
type StepPrototype struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Action      string         `json:"action"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// VariableSpec describes one named variable a Template's steps
// reference, and whether Instantiate must reject the instantiation if
// it is missing.
type VariableSpec struct {
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
}

// Template is a reusable remediation recipe (spec §3).
type Template struct {
	ID                 string                  `json:"id"`
	Name               string                  `json:"name"`
	Description        string                  `json:"description,omitempty"`
	TemplateType       string                  `json:"template_type"`
	VulnerabilityTypes []string                `json:"vulnerability_types"`
	Steps              []StepPrototype         `json:"steps"`
	Variables          map[string]VariableSpec `json:"variables"`
	Strategy           Strategy                `json:"strategy"`
}

// Action is one concrete, instantiated remediation unit (spec §3).
type Action struct {
	ID              string          `json:"id"`
	VulnerabilityID string          `json:"vulnerability_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Strategy        Strategy        `json:"strategy"`
	Source          Source          `json:"source"`
	Steps           []StepPrototype `json:"steps"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// Plan is the ordered bundle of Actions produced for one Request
// (spec §3).
type Plan struct {
	ID        string         `json:"id"`
	Target    string         `json:"target"`
	Actions   []Action       `json:"actions"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Result records the outcome of executing one Action (spec §6's
// "<data_dir>/results/<result_id>.json").
type Result struct {
	ID              string         `json:"id"`
	ActionID        string         `json:"action_id"`
	VulnerabilityID string         `json:"vulnerability_id"`
	Success         bool           `json:"success"`
	Status          Status         `json:"status"`
	Message         string         `json:"message,omitempty"`
	CompletedAt     time.Time      `json:"completed_at"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}
