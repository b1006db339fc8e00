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
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("Cache", func() {
	var (
		mr     *miniredis.Miniredis
		client *redis.Client
		cache  *Cache
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)

		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		cache = NewCache(client, time.Minute, nil)
		ctx = context.Background()
	})

	It("misses on an empty cache", func() {
		_, ok := cache.Get(ctx, "pol-1@1.0.0:abc")
		Expect(ok).To(BeFalse())
	})

	It("round-trips a stored evaluation result", func() {
		result := EvaluationResult{PolicyID: "pol-1", PolicyName: "no privileged", Passed: true}
		cache.Set(ctx, "pol-1@1.0.0:abc", result)

		got, ok := cache.Get(ctx, "pol-1@1.0.0:abc")
		Expect(ok).To(BeTrue())
		Expect(got.PolicyID).To(Equal("pol-1"))
		Expect(got.Passed).To(BeTrue())
	})

	It("expires entries past the configured TTL", func() {
		cache.Set(ctx, "pol-1@1.0.0:abc", EvaluationResult{PolicyID: "pol-1"})
		mr.FastForward(2 * time.Minute)

		_, ok := cache.Get(ctx, "pol-1@1.0.0:abc")
		Expect(ok).To(BeFalse())
	})

	It("treats a corrupt cache entry as a miss", func() {
		Expect(mr.Set("pol-1@1.0.0:abc", "not-json")).To(Succeed())
		_, ok := cache.Get(ctx, "pol-1@1.0.0:abc")
		Expect(ok).To(BeFalse())
	})
})
