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

// Package policy implements the Policy Engine: typed condition trees,
// policy documents, exceptions, evaluation, violation extraction, and
// enforcement-mode gating (spec §3, §4.6).
package policy

import "time"

type Type string

const (
	TypeSecurity    Type = "security"
	TypeCompliance  Type = "compliance"
	TypeOperational Type = "operational"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

type EnforcementMode string

const (
	EnforcementBlocking EnforcementMode = "blocking"
	EnforcementWarning  EnforcementMode = "warning"
	EnforcementAudit    EnforcementMode = "audit"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusDeprecated Status = "deprecated"
	StatusDraft      Status = "draft"
)

type Environment string

const (
	EnvironmentAll         Environment = "all"
	EnvironmentDevelopment Environment = "development"
	EnvironmentTesting     Environment = "testing"
	EnvironmentStaging     Environment = "staging"
	EnvironmentProduction  Environment = "production"
)

type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpContains    ConditionOperator = "contains"
	OpNotContains ConditionOperator = "not_contains"
	OpStartsWith  ConditionOperator = "starts_with"
	OpEndsWith    ConditionOperator = "ends_with"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpRegexMatch  ConditionOperator = "regex_match"
	OpExists      ConditionOperator = "exists"
	OpNotExists   ConditionOperator = "not_exists"
)

type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
)

// Condition is a leaf test against a dot-path field of the evaluation
// target. Value is nil for the exists/not_exists operators and required
// for every other operator (enforced by validateCondition at parse time).
type Condition struct {
	Field    string            `yaml:"field" json:"field"`
	Operator ConditionOperator `yaml:"operator" json:"operator"`
	Value    any               `yaml:"value,omitempty" json:"value,omitempty"`
}

// ConditionGroup is either a leaf (len(Conditions)==0, evaluated via
// Leaf) or an internal node combining its Conditions with Operator
// (default LogicalAnd). Exactly one of Leaf or Conditions is non-empty;
// Evaluate dispatches on which is set.
type ConditionGroup struct {
	Operator   LogicalOperator  `yaml:"operator,omitempty" json:"operator,omitempty"`
	Conditions []ConditionGroup `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Leaf       *Condition       `yaml:"-" json:"-"`
}

type Rule struct {
	ID               string         `yaml:"id" json:"id" validate:"required"`
	Name             string         `yaml:"name" json:"name" validate:"required"`
	Description      string         `yaml:"description" json:"description" validate:"required"`
	Severity         Severity       `yaml:"severity" json:"severity" validate:"required,oneof=critical high medium low info"`
	Condition        ConditionGroup `yaml:"condition" json:"condition"`
	RemediationSteps []string       `yaml:"remediation_steps,omitempty" json:"remediation_steps,omitempty"`
}

type Exception struct {
	ID         string          `yaml:"id" json:"id"`
	PolicyID   string          `yaml:"policy_id" json:"policy_id"`
	RuleIDs    []string        `yaml:"rule_ids" json:"rule_ids"`
	Reason     string          `yaml:"reason" json:"reason"`
	ApprovedBy string          `yaml:"approved_by" json:"approved_by"`
	ApprovedAt time.Time       `yaml:"approved_at" json:"approved_at"`
	ExpiresAt  *time.Time      `yaml:"expires_at,omitempty" json:"expires_at,omitempty"`
	Conditions *ConditionGroup `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

type Template struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Type        Type           `yaml:"type" json:"type"`
	Rules       []Rule         `yaml:"rules" json:"rules"`
	Parameters  map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Version     string         `yaml:"version" json:"version"`
	CreatedAt   time.Time      `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `yaml:"updated_at" json:"updated_at"`
}

type Policy struct {
	ID              string          `yaml:"id" json:"id" validate:"required"`
	Name            string          `yaml:"name" json:"name" validate:"required"`
	Description     string          `yaml:"description" json:"description" validate:"required"`
	Type            Type            `yaml:"type" json:"type" validate:"required,oneof=security compliance operational"`
	Rules           []Rule          `yaml:"rules" json:"rules" validate:"required,min=1,dive"`
	EnforcementMode EnforcementMode `yaml:"enforcement_mode" json:"enforcement_mode" validate:"required,oneof=blocking warning audit"`
	Status          Status          `yaml:"status" json:"status"`
	Environments    []Environment   `yaml:"environments" json:"environments"`
	Tags            []string        `yaml:"tags,omitempty" json:"tags,omitempty"`
	Version         string          `yaml:"version" json:"version"`
	ParentPolicyID  string          `yaml:"parent_policy_id,omitempty" json:"parent_policy_id,omitempty"`
	TemplateID      string          `yaml:"template_id,omitempty" json:"template_id,omitempty"`
	CreatedAt       time.Time       `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `yaml:"updated_at" json:"updated_at"`
	Metadata        map[string]any  `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

type RuleResult struct {
	RuleID            string   `json:"rule_id"`
	RuleName          string   `json:"rule_name"`
	Passed            bool     `json:"passed"`
	ExceptionApplied  string   `json:"exception_applied,omitempty"`
	Severity          Severity `json:"severity"`
}

type EvaluationResult struct {
	PolicyID          string         `json:"policy_id"`
	PolicyName        string         `json:"policy_name"`
	PolicyType        Type           `json:"policy_type"`
	Passed            bool           `json:"passed"`
	RuleResults       []RuleResult   `json:"rule_results"`
	ExceptionsApplied []string       `json:"exceptions_applied"`
	EvaluationTime    time.Time      `json:"evaluation_time"`
	Target            map[string]any `json:"target"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

type Violation struct {
	ID               string         `json:"id"`
	PolicyID         string         `json:"policy_id"`
	RuleID           string         `json:"rule_id"`
	Severity         Severity       `json:"severity"`
	Description      string         `json:"description"`
	Target           map[string]any `json:"target"`
	DetectedAt       time.Time      `json:"detected_at"`
	RemediationSteps []string       `json:"remediation_steps,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

type ChangeRequestStatus string

const (
	ChangeRequestPending     ChangeRequestStatus = "pending"
	ChangeRequestApproved    ChangeRequestStatus = "approved"
	ChangeRequestRejected    ChangeRequestStatus = "rejected"
	ChangeRequestImplemented ChangeRequestStatus = "implemented"
)

type ChangeRequest struct {
	ID            string              `json:"id"`
	PolicyID      string              `json:"policy_id"`
	RequestedBy   string              `json:"requested_by"`
	RequestedAt   time.Time           `json:"requested_at"`
	Changes       map[string]any      `json:"changes"`
	Reason        string              `json:"reason"`
	Status        ChangeRequestStatus `json:"status"`
	ApprovedBy    string              `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time          `json:"approved_at,omitempty"`
	ImplementedAt *time.Time          `json:"implemented_at,omitempty"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
}
