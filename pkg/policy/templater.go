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
	apperrors "github.com/flowforge/pipeline-core/internal/errors"
)

// GenerateTemplate scaffolds a draft policy with one example rule,
// mirroring policy_validator's generate_policy_template per-type
// starter rules. idFn produces the policy/rule IDs (injected so callers
// can use a real clock/uuid generator; GenerateTemplate itself never
// calls time.Now/uuid.New, so it stays deterministic for tests).
func GenerateTemplate(policyType Type, name, description string, mode EnforcementMode, idFn func() string) (Policy, error) {
	switch policyType {
	case TypeSecurity, TypeCompliance, TypeOperational:
	default:
		return Policy{}, apperrors.Newf(apperrors.ErrorTypeValidation, "invalid policy type: %s", policyType)
	}
	switch mode {
	case EnforcementBlocking, EnforcementWarning, EnforcementAudit:
	default:
		return Policy{}, apperrors.Newf(apperrors.ErrorTypeValidation, "invalid enforcement mode: %s", mode)
	}

	id := idFn()
	p := Policy{
		ID: id, Name: name, Description: description, Type: policyType,
		EnforcementMode: mode, Status: StatusDraft, Environments: []Environment{EnvironmentAll},
		Version: "1.0.0",
	}

	ruleID := idFn()
	switch policyType {
	case TypeSecurity:
		p.Rules = []Rule{{
			ID: ruleID, Name: "Require secure connections",
			Description: "Ensures that all connections use secure protocols",
			Severity:    SeverityHigh,
			Condition: ConditionGroup{Operator: LogicalAnd, Conditions: []ConditionGroup{
				{Leaf: &Condition{Field: "artifact.protocols", Operator: OpContains, Value: "https"}},
				{Leaf: &Condition{Field: "artifact.protocols", Operator: OpNotContains, Value: "http"}},
			}},
			RemediationSteps: []string{
				"Configure your application to use HTTPS instead of HTTP",
				"Update your infrastructure to redirect HTTP to HTTPS",
			},
		}}
	case TypeCompliance:
		p.Rules = []Rule{{
			ID: ruleID, Name: "Data encryption at rest",
			Description: "Ensures that all data is encrypted at rest",
			Severity:    SeverityHigh,
			Condition:   ConditionGroup{Leaf: &Condition{Field: "artifact.encryption.at_rest", Operator: OpEquals, Value: true}},
			RemediationSteps: []string{
				"Configure your storage to use encryption at rest",
				"Update your application to use encrypted storage",
			},
		}}
	case TypeOperational:
		p.Rules = []Rule{{
			ID: ruleID, Name: "Resource limits defined",
			Description: "Ensures that resource limits are defined",
			Severity:    SeverityMedium,
			Condition: ConditionGroup{Operator: LogicalAnd, Conditions: []ConditionGroup{
				{Leaf: &Condition{Field: "deployment.resources.limits", Operator: OpExists}},
				{Leaf: &Condition{Field: "deployment.resources.limits.cpu", Operator: OpExists}},
				{Leaf: &Condition{Field: "deployment.resources.limits.memory", Operator: OpExists}},
			}},
			RemediationSteps: []string{
				"Define resource limits in your deployment configuration",
				"Set appropriate CPU and memory limits",
			},
		}}
	}
	return p, nil
}
