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

package jsonstore

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestJSONStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

type record struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

var _ = Describe("Store", func() {
	It("round-trips a saved record deep-equal after Load", func() {
		s, err := New[record](GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		want := record{
			ID:        "r-1",
			Name:      "example",
			CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Tags:      []string{"a", "b"},
			Metadata:  map[string]any{"k": "v"},
		}
		Expect(s.Save(want.ID, want)).To(Succeed())

		got, ok, err := s.Load(want.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		if diff := cmp.Diff(want, got); diff != "" {
			Fail("loaded record diverged from saved record:\n" + diff)
		}
	})

	It("reports the record absent without error when missing", func() {
		s, err := New[record](GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		_, ok, err := s.Load("nope")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("lists every saved record and Delete removes it", func() {
		s, err := New[record](GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		a := record{ID: "a", Name: "first"}
		b := record{ID: "b", Name: "second"}
		Expect(s.Save(a.ID, a)).To(Succeed())
		Expect(s.Save(b.ID, b)).To(Succeed())

		all, err := s.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))

		Expect(s.Delete(a.ID)).To(Succeed())
		remaining, err := s.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(remaining).To(HaveLen(1))
		if diff := cmp.Diff(b, remaining[0]); diff != "" {
			Fail("remaining record diverged:\n" + diff)
		}
	})

	It("Delete on a missing record is not an error", func() {
		s, err := New[record](GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Delete("nope")).To(Succeed())
	})
})
