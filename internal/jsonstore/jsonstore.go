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

// Package jsonstore is the one-record-per-file JSON persistence layer
// shared by the remediation orchestrator's plans/actions/results,
// workflows, approvals, snapshots, and rollback operations (spec §6's
// "<data_dir>/<kind>/<id>.json" layout). Every write goes through the
// same write-temp/fsync/rename discipline pkg/policy.Store uses for its
// YAML files (spec §5), so a crash mid-write never leaves a truncated
// record.
package jsonstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
)

// Store persists values of type T as one JSON file per ID under dir.
// It is safe for concurrent use.
type Store[T any] struct {
	dir string
	mu  sync.RWMutex
}

// New creates (if absent) dir and returns a Store rooted there.
func New[T any](dir string) (*Store[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.NewResourceError(dir, err)
	}
	return &Store[T]{dir: dir}, nil
}

func (s *Store[T]) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save atomically writes v to <dir>/<id>.json.
func (s *Store[T]) Save(id string, v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrorTypeInternal, "marshal %s", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicWrite(s.path(id), data)
}

// Load reads <dir>/<id>.json. The second return is false, with a nil
// error, when the record does not exist.
func (s *Store[T]) Load(id string) (T, bool, error) {
	var zero T
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return zero, false, nil
		}
		return zero, false, apperrors.NewResourceError(s.path(id), err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, apperrors.Wrapf(err, apperrors.ErrorTypeInternal, "unmarshal %s", id)
	}
	return v, true, nil
}

// List decodes every record in dir. Files that cannot be read or fail
// to parse are skipped silently, not fatal to the batch; the caller is
// not told which files were skipped.
func (s *Store[T]) List() ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.NewResourceError(s.dir, err)
	}
	var out []T
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Delete removes <dir>/<id>.json. Deleting a record that does not
// exist is not an error.
func (s *Store[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return apperrors.NewResourceError(s.path(id), err)
	}
	return nil
}

// atomicWrite writes data to a temp file in dir and renames it over
// path, mirroring pkg/policy.Store's write discipline.
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
