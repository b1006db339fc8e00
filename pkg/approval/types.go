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

// Package approval implements the ApprovalService (spec §3
// "ApprovalRequest", §4.9): creating, routing, and deciding approval
// requests gating a workflow step.
package approval

import "time"

// Role is who may decide an ApprovalRequest.
type Role string

const (
	RoleSecurityAdmin     Role = "security_admin"
	RoleDeveloper         Role = "developer"
	RoleTeamLead          Role = "team_lead"
	RoleComplianceOfficer Role = "compliance_officer"
)

// Status is a Request's lifecycle state (spec §3).
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Request is one approval gate instance (spec §3 "ApprovalRequest").
// Metadata is always present but optional per spec §9's Open Question.
type Request struct {
	ID            string         `json:"id"`
	WorkflowID    string         `json:"workflow_id"`
	StepID        string         `json:"step_id"`
	ActionID      string         `json:"action_id"`
	RequiredRoles []Role         `json:"required_roles"`
	Status        Status         `json:"status"`
	Approver      string         `json:"approver,omitempty"`
	Comments      string         `json:"comments,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
	RequiredBy    *time.Time     `json:"required_by,omitempty"`
	Metadata      map[string]any `json:"metadata"`
}

// ComputeTimeRemaining renders the non-negative duration until
// requiredBy as Go's time.Duration.String() format ("1m30s", "45s"),
// floored at "0s" once the deadline has passed. Ported from the
// teacher's pkg/remediationapprovalrequest package.
func ComputeTimeRemaining(requiredBy, now time.Time) string {
	remaining := requiredBy.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining.String()
}
