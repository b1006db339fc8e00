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

package packagemgr

import (
	"context"
	"os/exec"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// NewToolBreaker wraps a native tree-tool invocation in a circuit
// breaker, requiring at least 5 requests before evaluating the failure
// ratio against threshold (mirroring the minimum-sample-size rule the
// teacher's own circuit breaker enforces) and reopening to half-open
// after resetTimeout.
func NewToolBreaker(name string, failureThreshold float64, resetTimeout time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    name,
		Timeout: resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= failureThreshold
		},
	})
}

// runTreeTool invokes a native dependency-tree command under ctx's
// deadline, through breaker. A breaker-open error or tool-not-found
// error is returned to the caller, which must fall back to
// direct-dependency-only output rather than aborting the scan (§4.3,
// §7 resource-error policy).
func runTreeTool(ctx context.Context, breaker *gobreaker.CircuitBreaker[[]byte], logger *zap.Logger, dir string, name string, args ...string) ([]byte, error) {
	out, err := breaker.Execute(func() ([]byte, error) {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Dir = dir
		return cmd.Output()
	})
	if err != nil {
		logger.Info("native dependency tree tool unavailable, falling back to direct dependencies only",
			zap.String("tool", name), zap.Error(err))
		return nil, err
	}
	return out, nil
}
