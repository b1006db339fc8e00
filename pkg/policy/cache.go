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
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache memoizes EvaluationResult by (policy id, version, target) so a
// build pipeline that evaluates the same policy against the same
// artifact repeatedly (e.g. retries) doesn't re-walk every condition
// tree. Misses and Redis errors are both treated as "not cached" —
// evaluation always falls back to computing the result directly.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) Get(ctx context.Context, key string) (EvaluationResult, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return EvaluationResult{}, false
	}
	var result EvaluationResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("discarding corrupt policy evaluation cache entry", zap.String("key", key), zap.Error(err))
		return EvaluationResult{}, false
	}
	return result, true
}

func (c *Cache) Set(ctx context.Context, key string, result EvaluationResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to write policy evaluation cache entry", zap.String("key", key), zap.Error(err))
	}
}
