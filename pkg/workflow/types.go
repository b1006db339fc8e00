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

// Package workflow implements the WorkflowRuntime (spec §3 "Workflow"/
// "WorkflowStep", §4.8's step execution state machine). A Workflow
// advances strictly through its steps by current index. It imports
// pkg/remediation for the Plan, Action and Result types but runs
// actions only through the ActionExecutor interface, and it reaches
// pkg/approval only through ApprovalRequester, never importing it
// (spec §9: accept interfaces at package boundaries instead of
// duck-typed payloads).
package workflow

import "time"

// StepKind is what a WorkflowStep represents.
type StepKind string

const (
	StepRemediation  StepKind = "remediation"
	StepVerification StepKind = "verification"
	StepApproval     StepKind = "approval"
	StepRollback     StepKind = "rollback"
)

// StepStatus is a WorkflowStep's lifecycle state (spec §4.8):
//
//	pending -> running -> (completed | failed | waiting_for_approval)
//	waiting_for_approval -> (completed | failed | approval_rejected)   [via HandleApprovalResult]
type StepStatus string

const (
	StepPending            StepStatus = "pending"
	StepRunning            StepStatus = "running"
	StepCompleted          StepStatus = "completed"
	StepFailed             StepStatus = "failed"
	StepWaitingForApproval StepStatus = "waiting_for_approval"
	StepApprovalRejected   StepStatus = "approval_rejected"
)

// Status is a Workflow's overall lifecycle state.
type Status string

const (
	WorkflowPending    Status = "pending"
	WorkflowInProgress Status = "in_progress"
	WorkflowCompleted  Status = "completed"
	WorkflowFailed     Status = "failed"
	WorkflowRolledBack Status = "rolled_back"
)

// WorkflowStep is one ordered step of a Workflow (spec §3).
type WorkflowStep struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Kind             StepKind       `json:"kind"`
	ActionID         string         `json:"action_id,omitempty"`
	Status           StepStatus     `json:"status"`
	RequiresApproval bool           `json:"requires_approval"`
	ApprovalRoles    []string       `json:"approval_roles,omitempty"`
	Result           map[string]any `json:"result,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Workflow executes a Plan's actions as an ordered sequence of steps
// (spec §3).
type Workflow struct {
	ID           string         `json:"id"`
	PlanID       string         `json:"plan_id"`
	Steps        []WorkflowStep `json:"steps"`
	CurrentIndex int            `json:"current_index"`
	Status       Status         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
