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

package planner

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Work is a per-node unit of build work, e.g. compiling one file node.
type Work func(ctx context.Context, nodeKey string) error

// Execute runs plan level-by-level: within a level, nodes run
// concurrently bounded by MaxParallelJobs via a weighted semaphore,
// and the whole level must complete (successfully) before the next
// level starts, since later levels may depend on earlier ones. The
// first error cancels the remaining work in that level and aborts the
// plan.
func (p *Planner) Execute(ctx context.Context, plan Plan, work Work) error {
	sem := semaphore.NewWeighted(int64(p.MaxParallelJobs))
	for _, level := range plan.Levels {
		group, levelCtx := errgroup.WithContext(ctx)
		for _, nodeKey := range level {
			nodeKey := nodeKey
			if err := sem.Acquire(levelCtx, 1); err != nil {
				return err
			}
			group.Go(func() error {
				defer sem.Release(1)
				return work(levelCtx, nodeKey)
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
	}
	return nil
}
