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

package remediation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
	"github.com/flowforge/pipeline-core/internal/jsonstore"
)

// Planner matches a Request's vulnerabilities to templates and
// produces a Plan of Actions (spec §4.8), persisting plans/actions/
// results under <data_dir>/{plans,actions,results} (spec §6).
type Planner struct {
	templater *Templater
	logger    *zap.Logger

	plans   *jsonstore.Store[Plan]
	actions *jsonstore.Store[Action]
	results *jsonstore.Store[Result]
}

// NewPlanner builds a Planner rooted at dataDir, creating its
// plans/actions/results subdirectories.
func NewPlanner(dataDir string, templater *Templater, logger *zap.Logger) (*Planner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if templater == nil {
		templater = NewTemplater()
	}
	plans, err := jsonstore.New[Plan](dataDir + "/plans")
	if err != nil {
		return nil, err
	}
	actions, err := jsonstore.New[Action](dataDir + "/actions")
	if err != nil {
		return nil, err
	}
	results, err := jsonstore.New[Result](dataDir + "/results")
	if err != nil {
		return nil, err
	}
	return &Planner{templater: templater, logger: logger, plans: plans, actions: actions, results: results}, nil
}

// CreatePlan de-duplicates req's vulnerabilities by ID, matches each
// distinct one to its first applicable template, instantiates an
// Action for it, and aggregates the successful Actions into a
// persisted Plan (spec §4.8).
func (p *Planner) CreatePlan(req Request) (Plan, error) {
	now := time.Now().UTC()
	plan := Plan{
		ID:        "PLAN-" + uuid.NewString(),
		Target:    req.Target(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  req.Metadata,
	}

	seen := map[string]bool{}
	for _, vuln := range req.Vulnerabilities {
		if seen[vuln.ID] {
			continue
		}
		seen[vuln.ID] = true

		action, ok := p.materializeAction(vuln)
		if !ok {
			p.logger.Warn("no applicable template or missing variables, skipping action",
				zap.String("vulnerability_id", vuln.ID))
			continue
		}
		if err := p.actions.Save(action.ID, action); err != nil {
			return Plan{}, err
		}
		plan.Actions = append(plan.Actions, action)
	}

	if err := p.plans.Save(plan.ID, plan); err != nil {
		return Plan{}, err
	}
	p.logger.Info("created remediation plan", zap.String("plan_id", plan.ID), zap.Int("actions", len(plan.Actions)))
	return plan, nil
}

// materializeAction finds the first template matching vuln's type and
// instantiates an Action from it. ok is false when no template
// applies, or the applicable template is missing a required variable.
func (p *Planner) materializeAction(vuln Vulnerability) (Action, bool) {
	vulnType := vuln.Type
	if vulnType == "" {
		vulnType = "CVE"
	}
	candidates := p.templater.Find(vulnType)
	if len(candidates) == 0 {
		return Action{}, false
	}
	tpl := candidates[0]

	variables := deriveVariables(vuln)
	steps, ok := Instantiate(tpl, variables)
	if !ok {
		return Action{}, false
	}

	now := time.Now().UTC()
	return Action{
		ID:              "ACTION-" + uuid.NewString(),
		VulnerabilityID: vuln.ID,
		Name:            fmt.Sprintf("Remediate %s", vuln.ID),
		Description:     fmt.Sprintf("Remediation for %s using template %s", vuln.ID, tpl.Name),
		Strategy:        tpl.Strategy,
		Source:          SourceTemplate,
		Steps:           steps,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		Metadata: map[string]any{
			"template_id":   tpl.ID,
			"template_name": tpl.Name,
			"template_type": tpl.TemplateType,
			"variables":     variables,
		},
	}, true
}

// deriveVariables maps a Vulnerability's fields onto the variable
// names the built-in templates reference. affected_component is
// "name@version"; secret_name is the component name too, and file_path
// is always "package.json".
func deriveVariables(vuln Vulnerability) map[string]string {
	name, version := vuln.AffectedComponent, ""
	if idx := strings.LastIndex(vuln.AffectedComponent, "@"); idx >= 0 {
		name = vuln.AffectedComponent[:idx]
		version = vuln.AffectedComponent[idx+1:]
	}
	vars := map[string]string{
		"dependency_name": name,
		"current_version": version,
		"fixed_version":   vuln.FixVersion,
		"secret_name":     name,
		"file_path":       "package.json",
	}
	return vars
}

// ExecuteAction simulates running action's steps (this module has no
// real execution backend per spec §1's non-goals) and records a
// Result. Automated and assisted strategies succeed unconditionally;
// manual actions are recorded as completed too, since approval gating
// (if required) happens one layer up in pkg/workflow before this is
// ever called.
func (p *Planner) ExecuteAction(actionID string) (Result, error) {
	action, ok, err := p.actions.Load(actionID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, apperrors.NewNotFoundError(fmt.Sprintf("action %s", actionID))
	}

	action.Status = StatusCompleted
	action.UpdatedAt = time.Now().UTC()
	if err := p.actions.Save(action.ID, action); err != nil {
		return Result{}, err
	}

	result := Result{
		ID:              "RESULT-" + uuid.NewString(),
		ActionID:        action.ID,
		VulnerabilityID: action.VulnerabilityID,
		Success:         true,
		Status:          StatusCompleted,
		Message:         "action executed successfully",
		CompletedAt:     time.Now().UTC(),
	}
	if err := p.results.Save(result.ID, result); err != nil {
		return Result{}, err
	}
	return result, nil
}

// ExecutePlan runs every action in plan in order and returns their
// results; it fails fast on the first action that errors, leaving the
// plan's status untouched so the caller can inspect partial progress.
func (p *Planner) ExecutePlan(planID string) ([]Result, error) {
	plan, ok, err := p.plans.Load(planID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("plan %s", planID))
	}

	var results []Result
	for _, action := range plan.Actions {
		result, err := p.ExecuteAction(action.ID)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	if _, err := p.UpdatePlanStatus(planID, StatusCompleted); err != nil {
		return results, err
	}
	return results, nil
}

func (p *Planner) GetPlan(id string) (Plan, bool, error)     { return p.plans.Load(id) }
func (p *Planner) GetAction(id string) (Action, bool, error) { return p.actions.Load(id) }
func (p *Planner) GetResult(id string) (Result, bool, error) { return p.results.Load(id) }

// UpdatePlanStatus persists a new status for plan (spec's testable
// property: updated_at >= created_at holds trivially since UpdatedAt
// is always set to time.Now()).
func (p *Planner) UpdatePlanStatus(planID string, status Status) (Plan, error) {
	plan, ok, err := p.plans.Load(planID)
	if err != nil {
		return Plan{}, err
	}
	if !ok {
		return Plan{}, apperrors.NewNotFoundError(fmt.Sprintf("plan %s", planID))
	}
	plan.Status = status
	plan.UpdatedAt = time.Now().UTC()
	if err := p.plans.Save(plan.ID, plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}
