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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
)

// Store manages policy lifecycle, versioning, archival, and change
// requests on top of a directory of YAML files (spec §4.7), grounded on
// PolicyManager: list/get/create/update/delete, get_versions/
// get_version/restore_version/compare_versions, and the change-request
// state machine. Writes go through a single per-policy-id mutex so two
// updates to the same policy never interleave (spec §5: "policy
// change-requests serialize apply at policy-id granularity").
type Store struct {
	policyDir  string
	archiveDir string
	logger     *zap.Logger
	validator  *Validator

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	crMu           sync.RWMutex
	changeRequests map[string]*ChangeRequest
}

func NewStore(policyDir, archiveDir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(policyDir, 0o755); err != nil {
		return nil, apperrors.NewResourceError(policyDir, err)
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return nil, apperrors.NewResourceError(archiveDir, err)
	}
	return &Store{
		policyDir: policyDir, archiveDir: archiveDir, logger: logger, validator: NewValidator(),
		locks: map[string]*sync.Mutex{}, changeRequests: map[string]*ChangeRequest{},
	}, nil
}

func (s *Store) lockFor(policyID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[policyID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[policyID] = l
	}
	return l
}

func (s *Store) policyFiles() ([]string, error) {
	entries, err := os.ReadDir(s.policyDir)
	if err != nil {
		return nil, apperrors.NewResourceError(s.policyDir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			out = append(out, filepath.Join(s.policyDir, e.Name()))
		}
	}
	return out, nil
}

// List returns every policy matching the given filters; an empty
// filter value means "don't filter on this dimension".
func (s *Store) List(policyType Type, status Status, environment Environment, tags []string) ([]Policy, error) {
	files, err := s.policyFiles()
	if err != nil {
		return nil, err
	}
	var out []Policy
	for _, f := range files {
		p, err := LoadFromFile(f)
		if err != nil {
			s.logger.Error("failed to load policy", zap.String("file", f), zap.Error(err))
			continue
		}
		if policyType != "" && p.Type != policyType {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		if environment != "" && !environmentMatches(environment, p.Environments) {
			continue
		}
		if len(tags) > 0 && !hasAllTags(p.Tags, tags) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func hasAllTags(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if !set[t] {
			return false
		}
	}
	return true
}

func (s *Store) Get(policyID string) (Policy, bool, error) {
	files, err := s.policyFiles()
	if err != nil {
		return Policy{}, false, err
	}
	for _, f := range files {
		p, err := LoadFromFile(f)
		if err != nil {
			s.logger.Error("failed to load policy", zap.String("file", f), zap.Error(err))
			continue
		}
		if p.ID == policyID {
			return p, true, nil
		}
	}
	return Policy{}, false, nil
}

func (s *Store) findFile(policyID string) (string, error) {
	files, err := s.policyFiles()
	if err != nil {
		return "", err
	}
	for _, f := range files {
		p, err := LoadFromFile(f)
		if err != nil {
			continue
		}
		if p.ID == policyID {
			return f, nil
		}
	}
	return "", nil
}

// Create rejects a malformed document, a duplicate ID, and otherwise
// writes the policy file atomically (write-temp, fsync, rename — spec
// §5).
func (s *Store) Create(yamlContent []byte) (Policy, error) {
	p, err := LoadFromYAML(yamlContent)
	if err != nil {
		return Policy{}, err
	}
	if errs := s.validator.Validate(p); len(errs) > 0 {
		return Policy{}, apperrors.NewValidationError(strings.Join(errs, "; "))
	}
	lock := s.lockFor(p.ID)
	lock.Lock()
	defer lock.Unlock()

	_, exists, err := s.Get(p.ID)
	if err != nil {
		return Policy{}, err
	}
	if exists {
		return Policy{}, apperrors.NewStateError(fmt.Sprintf("policy with ID %s already exists", p.ID))
	}

	path := filepath.Join(s.policyDir, p.ID+".yaml")
	if err := atomicWrite(path, yamlContent); err != nil {
		return Policy{}, err
	}
	s.logger.Info("created policy", zap.String("policy_id", p.ID), zap.String("file", path))
	return p, nil
}

// Update archives the current version, bumps its patch version, stamps
// updated_at, and writes the new content.
func (s *Store) Update(policyID string, yamlContent []byte) (Policy, error) {
	lock := s.lockFor(policyID)
	lock.Lock()
	defer lock.Unlock()

	existing, exists, err := s.Get(policyID)
	if err != nil {
		return Policy{}, err
	}
	if !exists {
		return Policy{}, apperrors.NewNotFoundError(fmt.Sprintf("policy %s", policyID))
	}

	newPolicy, err := LoadFromYAML(yamlContent)
	if err != nil {
		return Policy{}, err
	}
	if newPolicy.ID != policyID {
		return Policy{}, apperrors.NewValidationError(
			fmt.Sprintf("policy ID in document (%s) does not match requested ID (%s)", newPolicy.ID, policyID))
	}
	if errs := s.validator.Validate(newPolicy); len(errs) > 0 {
		return Policy{}, apperrors.NewValidationError(strings.Join(errs, "; "))
	}

	if err := s.archiveLocked(policyID); err != nil {
		return Policy{}, err
	}

	newPolicy.Version = incrementVersion(existing.Version)
	newPolicy.UpdatedAt = time.Now().UTC()

	path, err := s.findFile(policyID)
	if err != nil {
		return Policy{}, err
	}
	if path == "" {
		return Policy{}, apperrors.NewNotFoundError(fmt.Sprintf("policy file for %s", policyID))
	}

	updatedYAML, err := ToYAML(newPolicy)
	if err != nil {
		return Policy{}, apperrors.Wrapf(err, apperrors.ErrorTypeInternal, "serialize updated policy")
	}
	if err := atomicWrite(path, updatedYAML); err != nil {
		return Policy{}, err
	}
	s.logger.Info("updated policy", zap.String("policy_id", policyID),
		zap.String("old_version", existing.Version), zap.String("new_version", newPolicy.Version))
	return newPolicy, nil
}

// Delete archives then removes the policy file.
func (s *Store) Delete(policyID string) error {
	lock := s.lockFor(policyID)
	lock.Lock()
	defer lock.Unlock()

	path, err := s.findFile(policyID)
	if err != nil {
		return err
	}
	if path == "" {
		return apperrors.NewNotFoundError(fmt.Sprintf("policy %s", policyID))
	}
	if err := s.archiveLocked(policyID); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return apperrors.NewResourceError(path, err)
	}
	s.logger.Info("deleted policy", zap.String("policy_id", policyID))
	return nil
}

// archiveLocked copies the current policy file into
// <archiveDir>/<policyID>/<policyID>_v<version>_<utc-ts>.yaml. Caller
// must already hold lockFor(policyID).
func (s *Store) archiveLocked(policyID string) error {
	current, exists, err := s.Get(policyID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	path, err := s.findFile(policyID)
	if err != nil || path == "" {
		return err
	}

	dir := filepath.Join(s.archiveDir, policyID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewResourceError(dir, err)
	}

	ts := time.Now().UTC().Format("20060102150405")
	archivePath := filepath.Join(dir, fmt.Sprintf("%s_v%s_%s.yaml", policyID, current.Version, ts))

	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewResourceError(path, err)
	}
	if err := atomicWrite(archivePath, data); err != nil {
		return err
	}
	s.logger.Info("archived policy", zap.String("policy_id", policyID),
		zap.String("version", current.Version), zap.String("archive_file", archivePath))
	return nil
}

type PolicyVersion struct {
	Version     string
	UpdatedAt   time.Time
	Status      Status
	IsCurrent   bool
	ArchiveFile string
}

// Versions lists the current version plus every archived version,
// newest-first by semantic version.
func (s *Store) Versions(policyID string) ([]PolicyVersion, error) {
	current, exists, err := s.Get(policyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("policy %s", policyID))
	}

	versions := []PolicyVersion{{Version: current.Version, UpdatedAt: current.UpdatedAt, Status: current.Status, IsCurrent: true}}

	archiveDir := filepath.Join(s.archiveDir, policyID)
	entries, err := os.ReadDir(archiveDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() || !(strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml")) {
				continue
			}
			p, err := LoadFromFile(filepath.Join(archiveDir, e.Name()))
			if err != nil {
				s.logger.Error("failed to load archived policy", zap.String("file", e.Name()), zap.Error(err))
				continue
			}
			versions = append(versions, PolicyVersion{
				Version: p.Version, UpdatedAt: p.UpdatedAt, Status: p.Status, ArchiveFile: e.Name(),
			})
		}
	}

	sort.Slice(versions, func(i, j int) bool {
		return versionGreater(versions[i].Version, versions[j].Version)
	})
	return versions, nil
}

// Version returns one specific version of a policy, current or archived.
func (s *Store) Version(policyID, version string) (Policy, bool, error) {
	current, exists, err := s.Get(policyID)
	if err != nil {
		return Policy{}, false, err
	}
	if !exists {
		return Policy{}, false, apperrors.NewNotFoundError(fmt.Sprintf("policy %s", policyID))
	}
	if current.Version == version {
		return current, true, nil
	}

	archiveDir := filepath.Join(s.archiveDir, policyID)
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		return Policy{}, false, nil
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p, err := LoadFromFile(filepath.Join(archiveDir, e.Name()))
		if err != nil {
			continue
		}
		if p.Version == version {
			return p, true, nil
		}
	}
	return Policy{}, false, nil
}

// RestoreVersion archives the current version, then writes back the
// requested archived version bumped to a new patch version with status
// reset to active.
func (s *Store) RestoreVersion(policyID, version string) (Policy, error) {
	lock := s.lockFor(policyID)
	lock.Lock()
	defer lock.Unlock()

	toRestore, ok, err := s.Version(policyID, version)
	if err != nil {
		return Policy{}, err
	}
	if !ok {
		return Policy{}, apperrors.NewNotFoundError(fmt.Sprintf("version %s of policy %s", version, policyID))
	}

	current, _, err := s.Get(policyID)
	if err != nil {
		return Policy{}, err
	}
	if current.Version == version {
		return current, nil
	}

	if err := s.archiveLocked(policyID); err != nil {
		return Policy{}, err
	}

	toRestore.Version = incrementVersion(current.Version)
	toRestore.UpdatedAt = time.Now().UTC()
	toRestore.Status = StatusActive

	path, err := s.findFile(policyID)
	if err != nil {
		return Policy{}, err
	}
	if path == "" {
		path = filepath.Join(s.policyDir, policyID+".yaml")
	}
	data, err := ToYAML(toRestore)
	if err != nil {
		return Policy{}, apperrors.Wrapf(err, apperrors.ErrorTypeInternal, "serialize restored policy")
	}
	if err := atomicWrite(path, data); err != nil {
		return Policy{}, err
	}
	s.logger.Info("restored policy version", zap.String("policy_id", policyID),
		zap.String("from_version", version), zap.String("to_version", toRestore.Version))
	return toRestore, nil
}

type VersionComparison struct {
	FieldChanges  map[string][2]any
	AddedRules    []string
	RemovedRules  []string
	ModifiedRules []string
}

// CompareVersions diffs two versions of a policy by rule-id set and by
// the scalar fields the reference implementation tracks.
func (s *Store) CompareVersions(policyID, v1, v2 string) (VersionComparison, error) {
	p1, ok1, err := s.Version(policyID, v1)
	if err != nil {
		return VersionComparison{}, err
	}
	if !ok1 {
		return VersionComparison{}, apperrors.NewNotFoundError(fmt.Sprintf("version %s of policy %s", v1, policyID))
	}
	p2, ok2, err := s.Version(policyID, v2)
	if err != nil {
		return VersionComparison{}, err
	}
	if !ok2 {
		return VersionComparison{}, apperrors.NewNotFoundError(fmt.Sprintf("version %s of policy %s", v2, policyID))
	}

	rules1 := make(map[string]Rule, len(p1.Rules))
	for _, r := range p1.Rules {
		rules1[r.ID] = r
	}
	rules2 := make(map[string]Rule, len(p2.Rules))
	for _, r := range p2.Rules {
		rules2[r.ID] = r
	}

	cmp := VersionComparison{FieldChanges: map[string][2]any{}}
	for id := range rules2 {
		if _, ok := rules1[id]; !ok {
			cmp.AddedRules = append(cmp.AddedRules, id)
		}
	}
	for id, r1 := range rules1 {
		r2, ok := rules2[id]
		if !ok {
			cmp.RemovedRules = append(cmp.RemovedRules, id)
			continue
		}
		if fmt.Sprintf("%+v", r1) != fmt.Sprintf("%+v", r2) {
			cmp.ModifiedRules = append(cmp.ModifiedRules, id)
		}
	}
	sort.Strings(cmp.AddedRules)
	sort.Strings(cmp.RemovedRules)
	sort.Strings(cmp.ModifiedRules)

	if p1.Name != p2.Name {
		cmp.FieldChanges["name"] = [2]any{p1.Name, p2.Name}
	}
	if p1.Description != p2.Description {
		cmp.FieldChanges["description"] = [2]any{p1.Description, p2.Description}
	}
	if p1.Type != p2.Type {
		cmp.FieldChanges["type"] = [2]any{p1.Type, p2.Type}
	}
	if p1.EnforcementMode != p2.EnforcementMode {
		cmp.FieldChanges["enforcement_mode"] = [2]any{p1.EnforcementMode, p2.EnforcementMode}
	}
	if p1.Status != p2.Status {
		cmp.FieldChanges["status"] = [2]any{p1.Status, p2.Status}
	}
	return cmp, nil
}

// --- Change requests ---

func (s *Store) CreateChangeRequest(policyID, requestedBy, reason string, changes map[string]any) (*ChangeRequest, error) {
	_, exists, err := s.Get(policyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("policy %s", policyID))
	}

	cr := &ChangeRequest{
		ID: uuid.NewString(), PolicyID: policyID, RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(), Changes: changes, Reason: reason, Status: ChangeRequestPending,
	}
	s.crMu.Lock()
	s.changeRequests[cr.ID] = cr
	s.crMu.Unlock()
	s.logger.Info("created policy change request", zap.String("policy_id", policyID), zap.String("change_request_id", cr.ID))
	return cr, nil
}

func (s *Store) GetChangeRequest(id string) (*ChangeRequest, bool) {
	s.crMu.RLock()
	defer s.crMu.RUnlock()
	cr, ok := s.changeRequests[id]
	return cr, ok
}

func (s *Store) ListChangeRequests(policyID string, status ChangeRequestStatus) []*ChangeRequest {
	s.crMu.RLock()
	defer s.crMu.RUnlock()
	var out []*ChangeRequest
	for _, cr := range s.changeRequests {
		if policyID != "" && cr.PolicyID != policyID {
			continue
		}
		if status != "" && cr.Status != status {
			continue
		}
		out = append(out, cr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ApproveChangeRequest(id, approvedBy string) (*ChangeRequest, error) {
	s.crMu.Lock()
	defer s.crMu.Unlock()
	cr, ok := s.changeRequests[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("change request %s", id))
	}
	if cr.Status != ChangeRequestPending {
		return nil, apperrors.NewStateError(fmt.Sprintf("change request is not pending (status: %s)", cr.Status))
	}
	now := time.Now().UTC()
	cr.Status = ChangeRequestApproved
	cr.ApprovedBy = approvedBy
	cr.ApprovedAt = &now
	return cr, nil
}

func (s *Store) RejectChangeRequest(id, rejectedBy, reason string) (*ChangeRequest, error) {
	s.crMu.Lock()
	defer s.crMu.Unlock()
	cr, ok := s.changeRequests[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("change request %s", id))
	}
	if cr.Status != ChangeRequestPending {
		return nil, apperrors.NewStateError(fmt.Sprintf("change request is not pending (status: %s)", cr.Status))
	}
	cr.Status = ChangeRequestRejected
	cr.ApprovedBy = rejectedBy
	if cr.Metadata == nil {
		cr.Metadata = map[string]any{}
	}
	cr.Metadata["rejection_reason"] = reason
	return cr, nil
}

// ImplementChangeRequest applies the requested diff to the current
// policy and delegates persistence to Update, then marks the change
// request implemented.
func (s *Store) ImplementChangeRequest(id string) (*ChangeRequest, Policy, error) {
	s.crMu.Lock()
	cr, ok := s.changeRequests[id]
	s.crMu.Unlock()
	if !ok {
		return nil, Policy{}, apperrors.NewNotFoundError(fmt.Sprintf("change request %s", id))
	}
	if cr.Status != ChangeRequestApproved {
		return nil, Policy{}, apperrors.NewStateError(fmt.Sprintf("change request is not approved (status: %s)", cr.Status))
	}

	current, exists, err := s.Get(cr.PolicyID)
	if err != nil {
		return nil, Policy{}, err
	}
	if !exists {
		return nil, Policy{}, apperrors.NewNotFoundError(fmt.Sprintf("policy %s", cr.PolicyID))
	}

	updated := applyChanges(current, cr.Changes)
	yamlContent, err := ToYAML(updated)
	if err != nil {
		return nil, Policy{}, apperrors.Wrapf(err, apperrors.ErrorTypeInternal, "serialize change-request diff")
	}
	newPolicy, err := s.Update(cr.PolicyID, yamlContent)
	if err != nil {
		return nil, Policy{}, err
	}

	s.crMu.Lock()
	now := time.Now().UTC()
	cr.Status = ChangeRequestImplemented
	cr.ImplementedAt = &now
	s.crMu.Unlock()

	s.logger.Info("implemented policy change request", zap.String("change_request_id", id), zap.String("policy_id", cr.PolicyID))
	return cr, newPolicy, nil
}

// applyChanges overlays top-level field changes onto policy, with
// "rules" treated specially as {add: [...], update: [...], remove: [...]}.
func applyChanges(p Policy, changes map[string]any) Policy {
	updated := p
	if rawRuleChanges, ok := changes["rules"]; ok {
		if ruleChanges, ok := rawRuleChanges.(map[string]any); ok {
			updated.Rules = applyRuleChanges(updated.Rules, ruleChanges)
		}
	}
	if v, ok := changes["name"]; ok {
		if s, ok := v.(string); ok {
			updated.Name = s
		}
	}
	if v, ok := changes["description"]; ok {
		if s, ok := v.(string); ok {
			updated.Description = s
		}
	}
	if v, ok := changes["enforcement_mode"]; ok {
		if s, ok := v.(string); ok {
			updated.EnforcementMode = EnforcementMode(s)
		}
	}
	if v, ok := changes["status"]; ok {
		if s, ok := v.(string); ok {
			updated.Status = Status(s)
		}
	}
	return updated
}

func applyRuleChanges(rules []Rule, changes map[string]any) []Rule {
	out := append([]Rule{}, rules...)

	if addRules, ok := changes["add"].([]any); ok {
		for _, raw := range addRules {
			if r, ok := decodeRule(raw); ok {
				out = append(out, r)
			}
		}
	}
	if updateRules, ok := changes["update"].([]any); ok {
		for _, raw := range updateRules {
			r, ok := decodeRule(raw)
			if !ok || r.ID == "" {
				continue
			}
			for i := range out {
				if out[i].ID == r.ID {
					out[i] = r
					break
				}
			}
		}
	}
	if removeIDs, ok := changes["remove"].([]any); ok {
		removeSet := map[string]bool{}
		for _, id := range removeIDs {
			if s, ok := id.(string); ok {
				removeSet[s] = true
			}
		}
		var filtered []Rule
		for _, r := range out {
			if !removeSet[r.ID] {
				filtered = append(filtered, r)
			}
		}
		out = filtered
	}
	return out
}

// decodeRule converts a change request's generic map[string]any rule
// payload (as decoded from YAML/JSON) into a Rule via a JSON round
// trip, which is the simplest way to reuse Rule/ConditionGroup's own
// unmarshalers instead of hand-walking the map.
func decodeRule(raw any) (Rule, bool) {
	data, err := json.Marshal(raw)
	if err != nil {
		return Rule{}, false
	}
	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return Rule{}, false
	}
	return r, true
}

func incrementVersion(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) != 3 {
		return "1.0.0"
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	patch, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "1.0.0"
	}
	return fmt.Sprintf("%d.%d.%d", major, minor, patch+1)
}

var semverRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func versionTuple(version string) [3]int {
	if !semverRe.MatchString(version) {
		return [3]int{0, 0, 0}
	}
	parts := strings.SplitN(version, ".", 3)
	a, _ := strconv.Atoi(parts[0])
	b, _ := strconv.Atoi(parts[1])
	c, _ := strconv.Atoi(parts[2])
	return [3]int{a, b, c}
}

func versionGreater(a, b string) bool {
	ta, tb := versionTuple(a), versionTuple(b)
	for i := 0; i < 3; i++ {
		if ta[i] != tb[i] {
			return ta[i] > tb[i]
		}
	}
	return false
}

// atomicWrite writes data to a temp file in the same directory, fsyncs
// it, then renames it over path — so a crash mid-write never leaves a
// truncated policy file (spec §5).
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return apperrors.NewResourceError(dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewResourceError(path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewResourceError(path, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewResourceError(path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return apperrors.NewResourceError(path, err)
	}
	return nil
}
