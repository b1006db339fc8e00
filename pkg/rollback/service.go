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

package rollback

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
	"github.com/flowforge/pipeline-core/internal/jsonstore"
	"github.com/flowforge/pipeline-core/internal/metrics"
)

// Service captures and restores file content modified by remediation
// actions (spec §4.10). Restores are confined to baseDir: every path
// is validated and joined under it, rejecting traversal outside it.
type Service struct {
	baseDir    string
	snapshots  *jsonstore.Store[Snapshot]
	operations *jsonstore.Store[RollbackOperation]
	logger     *zap.Logger
}

func NewService(dataDir, baseDir string, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	snapshots, err := jsonstore.New[Snapshot](dataDir + "/snapshots")
	if err != nil {
		return nil, err
	}
	operations, err := jsonstore.New[RollbackOperation](dataDir + "/rollback_operations")
	if err != nil {
		return nil, err
	}
	return &Service{baseDir: baseDir, snapshots: snapshots, operations: operations, logger: logger}, nil
}

// resolvePath rejects absolute paths, any ".." segment, and symlinks
// anywhere in the resolved path, then joins path under s.baseDir.
func (s *Service) resolvePath(path string) (string, error) {
	if path == "" {
		return "", apperrors.NewValidationError("path must not be empty")
	}
	if filepath.IsAbs(path) {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid path %q: absolute paths are not allowed", path))
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", apperrors.NewValidationError(fmt.Sprintf("invalid path %q: path traversal is not allowed", path))
		}
	}

	cleaned := filepath.Clean(path)
	full := filepath.Join(s.baseDir, cleaned)
	if !strings.HasPrefix(full, filepath.Clean(s.baseDir)+string(os.PathSeparator)) && full != filepath.Clean(s.baseDir) {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid path %q: resolves outside the workspace", path))
	}

	current := filepath.Clean(s.baseDir)
	for _, part := range strings.Split(cleaned, string(os.PathSeparator)) {
		current = filepath.Join(current, part)
		if info, err := os.Lstat(current); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return "", apperrors.NewValidationError(fmt.Sprintf("invalid path %q: refuses to follow a symlink", path))
		}
	}
	return full, nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// CreateSnapshot records path's content before a remediation action
// modifies it. path is validated to reject traversal outside baseDir
// (spec §4.10/§9, grounded on the reference suite's rejection of
// "../../../etc/passwd").
func (s *Service) CreateSnapshot(workflowID, actionID, path, content string, metadata map[string]any) (Snapshot, error) {
	if _, err := s.resolvePath(path); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		ID:          "SNAPSHOT-" + uuid.NewString(),
		WorkflowID:  workflowID,
		ActionID:    actionID,
		Path:        path,
		Content:     content,
		ContentHash: hashContent(content),
		CreatedAt:   time.Now().UTC(),
		Metadata:    metadata,
	}
	if err := s.snapshots.Save(snap.ID, snap); err != nil {
		return Snapshot{}, err
	}
	s.logger.Info("created snapshot", zap.String("snapshot_id", snap.ID), zap.String("path", path))
	return snap, nil
}

func (s *Service) GetSnapshot(id string) (Snapshot, bool, error) { return s.snapshots.Load(id) }

// CreateRollbackOperation registers a pending restore of snapshotID.
func (s *Service) CreateRollbackOperation(workflowID, actionID, snapshotID string, kind Type, metadata map[string]any) (RollbackOperation, error) {
	if _, ok, err := s.snapshots.Load(snapshotID); err != nil {
		return RollbackOperation{}, err
	} else if !ok {
		return RollbackOperation{}, apperrors.NewNotFoundError(fmt.Sprintf("snapshot %s", snapshotID))
	}

	op := RollbackOperation{
		ID:         "ROLLBACK-" + uuid.NewString(),
		WorkflowID: workflowID,
		ActionID:   actionID,
		SnapshotID: snapshotID,
		Type:       kind,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
		Metadata:   metadata,
	}
	if err := s.operations.Save(op.ID, op); err != nil {
		return RollbackOperation{}, err
	}
	return op, nil
}

func (s *Service) GetRollbackOperation(id string) (RollbackOperation, bool, error) {
	return s.operations.Load(id)
}

// PerformRollback restores the operation's snapshot content to its
// recorded path: pending -> running -> completed|failed (spec §4.10).
func (s *Service) PerformRollback(id string) (map[string]any, error) {
	op, ok, err := s.operations.Load(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("rollback operation %s", id))
	}

	snap, ok, err := s.snapshots.Load(op.SnapshotID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("snapshot %s", op.SnapshotID))
	}

	op.Status = StatusRunning
	_ = s.operations.Save(op.ID, op)

	full, err := s.resolvePath(snap.Path)
	if err != nil {
		op.Status = StatusFailed
		op.Message = err.Error()
		_ = s.operations.Save(op.ID, op)
		metrics.RollbacksTotal.WithLabelValues(string(op.Status)).Inc()
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		op.Status = StatusFailed
		op.Message = err.Error()
		_ = s.operations.Save(op.ID, op)
		metrics.RollbacksTotal.WithLabelValues(string(op.Status)).Inc()
		return nil, apperrors.NewResourceError(full, err)
	}
	if err := os.WriteFile(full, []byte(snap.Content), 0o644); err != nil {
		op.Status = StatusFailed
		op.Message = err.Error()
		_ = s.operations.Save(op.ID, op)
		metrics.RollbacksTotal.WithLabelValues(string(op.Status)).Inc()
		return nil, apperrors.NewResourceError(full, err)
	}

	now := time.Now().UTC()
	op.Status = StatusCompleted
	op.CompletedAt = &now
	op.Message = "restored"
	if err := s.operations.Save(op.ID, op); err != nil {
		return nil, err
	}
	metrics.RollbacksTotal.WithLabelValues(string(op.Status)).Inc()
	s.logger.Info("performed rollback", zap.String("operation_id", id), zap.String("path", snap.Path))
	return map[string]any{"success": true, "path": snap.Path}, nil
}

// VerifyRollback re-reads the restored file and compares its hash to
// the snapshot's content hash. Idempotent: calling it repeatedly after
// a successful rollback always reports success without side effects
// beyond refreshing VerifiedAt (spec §4.10).
func (s *Service) VerifyRollback(id string) (map[string]any, error) {
	op, ok, err := s.operations.Load(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("rollback operation %s", id))
	}
	if op.Status != StatusCompleted && op.Status != StatusVerified {
		return nil, apperrors.NewStateError(fmt.Sprintf("rollback operation %s is not completed (%s)", id, op.Status))
	}

	snap, ok, err := s.snapshots.Load(op.SnapshotID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("snapshot %s", op.SnapshotID))
	}

	full, err := s.resolvePath(snap.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, apperrors.NewResourceError(full, err)
	}

	match := hashContent(string(data)) == snap.ContentHash
	now := time.Now().UTC()
	if match {
		op.Status = StatusVerified
		op.VerifiedAt = &now
	}
	if err := s.operations.Save(op.ID, op); err != nil {
		return nil, err
	}
	return map[string]any{"success": match, "content_hash": snap.ContentHash}, nil
}
