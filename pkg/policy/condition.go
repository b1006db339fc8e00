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
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
)

// rawCondition is the wire shape shared by a leaf condition and a
// condition group; which one it is gets decided by whether Operator
// names a LogicalOperator ("and"/"or") or a Conditions list is present.
type rawCondition struct {
	Operator   string         `yaml:"operator" json:"operator"`
	Conditions []rawCondition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Field      string         `yaml:"field,omitempty" json:"field,omitempty"`
	Value      any            `yaml:"value,omitempty" json:"value,omitempty"`
}

func isGroupOperator(op string) bool {
	return op == string(LogicalAnd) || op == string(LogicalOr)
}

// validateCondition enforces the spec's value-presence rule: value is
// forbidden for exists/not_exists and required for every other operator.
func validateCondition(c Condition) error {
	needsValue := c.Operator != OpExists && c.Operator != OpNotExists
	if needsValue && c.Value == nil {
		return apperrors.Newf(apperrors.ErrorTypeValidation, "condition on field %q: operator %q requires a value", c.Field, c.Operator)
	}
	if !needsValue && c.Value != nil {
		return apperrors.Newf(apperrors.ErrorTypeValidation, "condition on field %q: operator %q must not carry a value", c.Field, c.Operator)
	}
	return nil
}

func conditionGroupFromRaw(raw rawCondition) (ConditionGroup, error) {
	if isGroupOperator(raw.Operator) || len(raw.Conditions) > 0 {
		op := LogicalOperator(raw.Operator)
		if op == "" {
			op = LogicalAnd
		}
		g := ConditionGroup{Operator: op}
		for _, child := range raw.Conditions {
			childGroup, err := conditionGroupFromRaw(child)
			if err != nil {
				return ConditionGroup{}, err
			}
			g.Conditions = append(g.Conditions, childGroup)
		}
		return g, nil
	}

	cond := Condition{Field: raw.Field, Operator: ConditionOperator(raw.Operator), Value: raw.Value}
	if err := validateCondition(cond); err != nil {
		return ConditionGroup{}, err
	}
	return ConditionGroup{Leaf: &cond}, nil
}

func (g *ConditionGroup) UnmarshalYAML(value *yaml.Node) error {
	var raw rawCondition
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := conditionGroupFromRaw(raw)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func (g ConditionGroup) MarshalYAML() (any, error) {
	return g.toRaw(), nil
}

func (g *ConditionGroup) UnmarshalJSON(data []byte) error {
	var raw rawCondition
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := conditionGroupFromRaw(raw)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func (g ConditionGroup) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.toRaw())
}

func (g ConditionGroup) toRaw() rawCondition {
	if g.Leaf != nil {
		return rawCondition{Operator: string(g.Leaf.Operator), Field: g.Leaf.Field, Value: g.Leaf.Value}
	}
	raw := rawCondition{Operator: string(g.Operator)}
	for _, child := range g.Conditions {
		raw.Conditions = append(raw.Conditions, child.toRaw())
	}
	return raw
}

func (g ConditionGroup) String() string {
	if g.Leaf != nil {
		return fmt.Sprintf("%s %s %v", g.Leaf.Field, g.Leaf.Operator, g.Leaf.Value)
	}
	return fmt.Sprintf("(%s of %d conditions)", g.Operator, len(g.Conditions))
}
