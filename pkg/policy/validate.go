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
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Validator checks a policy document both for the struct-tag
// constraints (required fields, enum membership) and for the
// structural rules the reference implementation's hand-written
// _validate_rule/_validate_condition enforce: duplicate rule IDs within
// one policy, and well-formed condition leaves.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate returns every error found; an empty slice means the policy
// is well-formed (ValidateYAML mirrors this as errors==nil meaning valid).
func (pv *Validator) Validate(p Policy) []string {
	var errs []string

	if err := pv.v.Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	seen := map[string]bool{}
	for i, rule := range p.Rules {
		if rule.ID != "" {
			if seen[rule.ID] {
				errs = append(errs, fmt.Sprintf("rule %d: duplicate rule id %q", i, rule.ID))
			}
			seen[rule.ID] = true
		}
		errs = append(errs, validateConditionGroupStructure(rule.Condition, fmt.Sprintf("rule %d (%s)", i, rule.ID))...)
	}

	return errs
}

// ValidateYAML parses and validates a policy document in one step,
// mirroring validate_policy_yaml's "syntax error, then field checks,
// then parse" sequencing.
func (pv *Validator) ValidateYAML(data []byte) (bool, []string) {
	p, err := LoadFromYAML(data)
	if err != nil {
		return false, []string{err.Error()}
	}
	errs := pv.Validate(p)
	return len(errs) == 0, errs
}

var validOperators = map[ConditionOperator]bool{
	OpEquals: true, OpNotEquals: true, OpContains: true, OpNotContains: true,
	OpStartsWith: true, OpEndsWith: true, OpGreaterThan: true, OpLessThan: true,
	OpRegexMatch: true, OpExists: true, OpNotExists: true,
}

func validateConditionGroupStructure(g ConditionGroup, prefix string) []string {
	var errs []string
	if g.Leaf != nil {
		if g.Leaf.Field == "" {
			errs = append(errs, fmt.Sprintf("%s: condition missing required field: field", prefix))
		}
		if g.Leaf.Operator == "" {
			errs = append(errs, fmt.Sprintf("%s: condition missing required field: operator", prefix))
		} else if !validOperators[g.Leaf.Operator] {
			errs = append(errs, fmt.Sprintf("%s: invalid operator: %s", prefix, g.Leaf.Operator))
		}
		if g.Leaf.Operator == OpRegexMatch {
			if pattern, ok := g.Leaf.Value.(string); ok {
				if _, err := regexp.Compile(pattern); err != nil {
					errs = append(errs, fmt.Sprintf("%s: invalid regex_match pattern %q: %v", prefix, pattern, err))
				}
			} else {
				errs = append(errs, fmt.Sprintf("%s: regex_match value must be a string", prefix))
			}
		}
		return errs
	}
	if len(g.Conditions) == 0 {
		errs = append(errs, fmt.Sprintf("%s: condition group must have at least one condition", prefix))
		return errs
	}
	for i, child := range g.Conditions {
		errs = append(errs, validateConditionGroupStructure(child, fmt.Sprintf("%s, condition %d", prefix, i))...)
	}
	return errs
}
