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

package approval

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
	"github.com/flowforge/pipeline-core/internal/jsonstore"
)

// AutoApprover optionally auto-decides a Request against policy, the
// way pkg/policy.Engine.Evaluate matches a target against a Policy's
// rules. A nil AutoApprover means every request waits for a human.
type AutoApprover func(req Request) (autoApprove bool, reason string)

// Service creates and decides ApprovalRequests (spec §4.9). It exposes
// CreateApprovalRequest with the exact signature pkg/workflow.Runtime
// expects of its ApprovalRequester dependency, so *Service can be
// passed directly without an adapter.
type Service struct {
	requests *jsonstore.Store[Request]
	logger   *zap.Logger
	auto     AutoApprover
}

func NewService(dataDir string, auto AutoApprover, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	requests, err := jsonstore.New[Request](dataDir + "/approval_requests")
	if err != nil {
		return nil, err
	}
	return &Service{requests: requests, logger: logger, auto: auto}, nil
}

// CreateApprovalRequest opens a Request gating stepID of workflowID.
// When s.auto approves it immediately, the Request is persisted
// already decided, with Approver "system" (spec §9 auto-approval
// attribution).
func (s *Service) CreateApprovalRequest(workflowID, stepID, actionID string, requiredRoles []string, metadata map[string]any) (string, error) {
	roles := make([]Role, len(requiredRoles))
	for i, r := range requiredRoles {
		roles[i] = Role(r)
	}

	now := time.Now().UTC()
	req := Request{
		ID:            "APPROVAL-" + uuid.NewString(),
		WorkflowID:    workflowID,
		StepID:        stepID,
		ActionID:      actionID,
		RequiredRoles: roles,
		Status:        StatusPending,
		CreatedAt:     now,
		Metadata:      metadata,
	}

	if s.auto != nil {
		if approve, reason := s.auto(req); approve {
			decided := now
			req.Status = StatusApproved
			req.Approver = "system"
			req.Comments = reason
			req.DecidedAt = &decided
			s.logger.Info("auto-approved request", zap.String("request_id", req.ID), zap.String("reason", reason))
		}
	}

	if err := s.requests.Save(req.ID, req); err != nil {
		return "", err
	}
	s.logger.Info("created approval request", zap.String("request_id", req.ID), zap.String("workflow_id", workflowID), zap.String("step_id", stepID))
	return req.ID, nil
}

func (s *Service) GetRequest(id string) (Request, bool, error) { return s.requests.Load(id) }

func (s *Service) ListRequests() ([]Request, error) { return s.requests.List() }

// PendingSummary is one pending Request annotated with how long
// approvers have left to decide it, for a dashboard or notification
// digest (spec §4.9).
type PendingSummary struct {
	Request       Request
	TimeRemaining string
}

// PendingSummaries lists every pending request with TimeRemaining
// computed against now; requests without a RequiredBy deadline report
// an empty TimeRemaining.
func (s *Service) PendingSummaries(now time.Time) ([]PendingSummary, error) {
	all, err := s.requests.List()
	if err != nil {
		return nil, err
	}
	var out []PendingSummary
	for _, req := range all {
		if req.Status != StatusPending {
			continue
		}
		summary := PendingSummary{Request: req}
		if req.RequiredBy != nil {
			summary.TimeRemaining = ComputeTimeRemaining(*req.RequiredBy, now)
		}
		out = append(out, summary)
	}
	return out, nil
}

// ApproveRequest decides id in favor. It rejects with a state error if
// the request has already been decided (spec §4.9: a decided request
// cannot be re-decided).
func (s *Service) ApproveRequest(id, approver, comments string) (Request, error) {
	return s.decide(id, StatusApproved, approver, comments)
}

// RejectRequest decides id against, per spec §4.9's rejection path.
func (s *Service) RejectRequest(id, approver, comments string) (Request, error) {
	return s.decide(id, StatusRejected, approver, comments)
}

func (s *Service) decide(id string, status Status, approver, comments string) (Request, error) {
	req, ok, err := s.requests.Load(id)
	if err != nil {
		return Request{}, err
	}
	if !ok {
		return Request{}, apperrors.NewNotFoundError(fmt.Sprintf("approval request %s", id))
	}
	if req.Status != StatusPending {
		return Request{}, apperrors.NewStateError(fmt.Sprintf("approval request %s already decided (%s)", id, req.Status))
	}

	now := time.Now().UTC()
	req.Status = status
	req.Approver = approver
	req.Comments = comments
	req.DecidedAt = &now

	if err := s.requests.Save(req.ID, req); err != nil {
		return Request{}, err
	}
	s.logger.Info("decided approval request", zap.String("request_id", id), zap.String("status", string(status)), zap.String("approver", approver))
	return req, nil
}
