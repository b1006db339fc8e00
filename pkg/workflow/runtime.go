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

package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
	"github.com/flowforge/pipeline-core/internal/jsonstore"
	"github.com/flowforge/pipeline-core/internal/metrics"
	"github.com/flowforge/pipeline-core/pkg/remediation"
)

// ActionExecutor runs one remediation Action and reports its outcome.
// Satisfied by *remediation.Planner.
type ActionExecutor interface {
	ExecuteAction(actionID string) (remediation.Result, error)
}

// ApprovalRequester opens an approval request for a gated step and
// returns its ID. Satisfied directly by *approval.Service, whose
// CreateApprovalRequest has this signature, so this package never
// imports pkg/approval or its concrete Request type.
type ApprovalRequester interface {
	CreateApprovalRequest(workflowID, stepID, actionID string, requiredRoles []string, metadata map[string]any) (requestID string, err error)
}

// ApprovalGate decides, for one action, whether its remediation step
// must wait for human approval before executing, and which roles may
// grant it. This is the "policy gate (external input)" spec §4.8
// refers to; a nil gate means no step ever requires approval.
type ApprovalGate func(action remediation.Action) (requiresApproval bool, roles []string)

// Runtime executes Workflows: creating one per Plan, advancing steps
// strictly by CurrentIndex, and persisting state after every
// transition so execution survives a restart (spec §3, §4.8, §5).
type Runtime struct {
	workflows *jsonstore.Store[Workflow]
	logger    *zap.Logger

	// mu serializes ExecuteStep/HandleApprovalResult per workflow ID,
	// matching spec §5: "concurrent execute_workflow_step calls on the
	// same workflow MUST be serialized".
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRuntime(dataDir string, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	workflows, err := jsonstore.New[Workflow](dataDir + "/workflows")
	if err != nil {
		return nil, err
	}
	return &Runtime{workflows: workflows, logger: logger, locks: map[string]*sync.Mutex{}}, nil
}

func (rt *Runtime) lockFor(workflowID string) *sync.Mutex {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	l, ok := rt.locks[workflowID]
	if !ok {
		l = &sync.Mutex{}
		rt.locks[workflowID] = l
	}
	return l
}

// CreateForPlan builds a Workflow for plan: each Action becomes an
// ordered (remediation, verification) step pair (spec §4.8). gate may
// be nil, meaning no step requires approval.
func (rt *Runtime) CreateForPlan(plan remediation.Plan, gate ApprovalGate) (Workflow, error) {
	now := time.Now().UTC()
	wf := Workflow{
		ID:        "WORKFLOW-" + uuid.NewString(),
		PlanID:    plan.ID,
		Status:    WorkflowPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, action := range plan.Actions {
		requiresApproval, roles := false, []string(nil)
		if gate != nil {
			requiresApproval, roles = gate(action)
		}
		wf.Steps = append(wf.Steps,
			WorkflowStep{
				ID: "STEP-" + uuid.NewString(), Name: "Remediate " + action.VulnerabilityID,
				Kind: StepRemediation, ActionID: action.ID, Status: StepPending,
				RequiresApproval: requiresApproval, ApprovalRoles: roles,
			},
			WorkflowStep{
				ID: "STEP-" + uuid.NewString(), Name: "Verify " + action.VulnerabilityID,
				Kind: StepVerification, ActionID: action.ID, Status: StepPending,
			},
		)
	}

	if err := rt.workflows.Save(wf.ID, wf); err != nil {
		return Workflow{}, err
	}
	metrics.ActiveWorkflows.Inc()
	rt.logger.Info("created workflow", zap.String("workflow_id", wf.ID), zap.String("plan_id", plan.ID), zap.Int("steps", len(wf.Steps)))
	return wf, nil
}

func (rt *Runtime) GetWorkflow(id string) (Workflow, bool, error) { return rt.workflows.Load(id) }

func (rt *Runtime) UpdateWorkflowStatus(id string, status Status) (Workflow, error) {
	wf, ok, err := rt.workflows.Load(id)
	if err != nil {
		return Workflow{}, err
	}
	if !ok {
		return Workflow{}, apperrors.NewNotFoundError(fmt.Sprintf("workflow %s", id))
	}
	wf.Status = status
	wf.UpdatedAt = time.Now().UTC()
	if err := rt.workflows.Save(wf.ID, wf); err != nil {
		return Workflow{}, err
	}
	return wf, nil
}

// ExecuteStep runs the step at workflow's CurrentIndex. If the step
// requires approval it creates an approval request and parks the step
// at waiting_for_approval without advancing the index; HandleApprovalResult
// resumes it later. Otherwise it executes the underlying action and,
// on success, advances CurrentIndex (completing the workflow if that
// was the last step).
func (rt *Runtime) ExecuteStep(workflowID string, executor ActionExecutor, approver ApprovalRequester) (bool, map[string]any, error) {
	lock := rt.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()

	wf, ok, err := rt.workflows.Load(workflowID)
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, apperrors.NewNotFoundError(fmt.Sprintf("workflow %s", workflowID))
	}
	if wf.CurrentIndex >= len(wf.Steps) {
		return true, map[string]any{"workflow": wf}, nil
	}

	step := &wf.Steps[wf.CurrentIndex]
	if step.Status == StepWaitingForApproval {
		// Never advance past a step parked on approval (testable
		// property, spec §8); re-invoking ExecuteStep is a no-op.
		return true, map[string]any{"step": step}, nil
	}

	step.Status = StepRunning
	wf.Status = WorkflowInProgress
	wf.UpdatedAt = time.Now().UTC()

	if step.RequiresApproval {
		requestID, err := approver.CreateApprovalRequest(wf.ID, step.ID, step.ActionID, step.ApprovalRoles, step.Metadata)
		if err != nil {
			step.Status = StepFailed
			wf.Status = WorkflowFailed
			_ = rt.persist(wf)
			return false, nil, err
		}
		step.Status = StepWaitingForApproval
		if step.Result == nil {
			step.Result = map[string]any{}
		}
		step.Result["approval_request_id"] = requestID
		if err := rt.persist(wf); err != nil {
			return false, nil, err
		}
		metrics.WorkflowStepsTotal.WithLabelValues(string(step.Kind), string(step.Status)).Inc()
		return true, map[string]any{"step": step}, nil
	}

	return rt.runStep(wf, step, executor)
}

// runStep executes step's action, advances the workflow on success,
// and persists the result either way. Caller must hold rt.lockFor(wf.ID).
func (rt *Runtime) runStep(wf Workflow, step *WorkflowStep, executor ActionExecutor) (bool, map[string]any, error) {
	result, err := executor.ExecuteAction(step.ActionID)
	if err != nil {
		step.Status = StepFailed
		wf.Status = WorkflowFailed
		_ = rt.persist(wf)
		metrics.WorkflowStepsTotal.WithLabelValues(string(step.Kind), string(step.Status)).Inc()
		return false, nil, err
	}

	step.Status = StepCompleted
	step.Result = map[string]any{"success": result.Success, "message": result.Message}
	wf.CurrentIndex++
	if wf.CurrentIndex >= len(wf.Steps) {
		wf.Status = WorkflowCompleted
		metrics.ActiveWorkflows.Dec()
	}
	if err := rt.persist(wf); err != nil {
		return false, nil, err
	}
	metrics.WorkflowStepsTotal.WithLabelValues(string(step.Kind), string(step.Status)).Inc()
	return true, map[string]any{"step": step}, nil
}

// HandleApprovalResult resumes a step parked at waiting_for_approval:
// rejection fails the step and the owning workflow; approval executes
// the gated action and advances the workflow exactly as a normal step
// completion would (spec §4.8, §8 invariant: "rejecting an approval
// request transitions its workflow to failed and no subsequent step
// executes").
func (rt *Runtime) HandleApprovalResult(workflowID, stepID string, approved bool, approver, comments string, executor ActionExecutor) (bool, map[string]any, error) {
	lock := rt.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()

	wf, ok, err := rt.workflows.Load(workflowID)
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, apperrors.NewNotFoundError(fmt.Sprintf("workflow %s", workflowID))
	}

	idx := -1
	for i := range wf.Steps {
		if wf.Steps[i].ID == stepID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil, apperrors.NewNotFoundError(fmt.Sprintf("step %s", stepID))
	}

	step := &wf.Steps[idx]
	if step.Status != StepWaitingForApproval {
		// Already decided by a prior call: first decision wins, later
		// ones are recorded but inert (spec §4.9/§9 approval race).
		return true, map[string]any{"step": step, "noop": true}, nil
	}

	if step.Result == nil {
		step.Result = map[string]any{}
	}
	step.Result["approver"] = approver
	step.Result["comments"] = comments

	if !approved {
		step.Status = StepApprovalRejected
		wf.Status = WorkflowFailed
		metrics.ActiveWorkflows.Dec()
		if err := rt.persist(wf); err != nil {
			return false, nil, err
		}
		metrics.WorkflowStepsTotal.WithLabelValues(string(step.Kind), string(step.Status)).Inc()
		return true, map[string]any{"step": step}, nil
	}

	// idx is not necessarily CurrentIndex for callers who reorder, but
	// in this runtime's own CreateForPlan sequencing it always is.
	wf.CurrentIndex = idx
	return rt.runStep(wf, step, executor)
}

func (rt *Runtime) persist(wf Workflow) error {
	wf.UpdatedAt = time.Now().UTC()
	return rt.workflows.Save(wf.ID, wf)
}
