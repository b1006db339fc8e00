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
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
)

// LoadFromYAML parses a policy document and applies the reference
// defaults: status=active, environments=[all], version="1.0.0".
func LoadFromYAML(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, apperrors.Wrapf(err, apperrors.ErrorTypeValidation, "invalid policy YAML")
	}
	applyPolicyDefaults(&p)
	return p, nil
}

func LoadFromJSON(data []byte) (Policy, error) {
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return Policy{}, apperrors.Wrapf(err, apperrors.ErrorTypeValidation, "invalid policy JSON")
	}
	applyPolicyDefaults(&p)
	return p, nil
}

// LoadFromFile dispatches on extension, mirroring PolicyManager's file
// listing (.yaml/.yml/.json).
func LoadFromFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, apperrors.NewResourceError(path, err)
	}
	if strings.HasSuffix(path, ".json") {
		return LoadFromJSON(data)
	}
	return LoadFromYAML(data)
}

func applyPolicyDefaults(p *Policy) {
	if p.Status == "" {
		p.Status = StatusActive
	}
	if len(p.Environments) == 0 {
		p.Environments = []Environment{EnvironmentAll}
	}
	if p.Version == "" {
		p.Version = "1.0.0"
	}
}

func ToYAML(p Policy) ([]byte, error) {
	return yaml.Marshal(p)
}

func ToJSON(p Policy) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
